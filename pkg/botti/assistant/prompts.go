package assistant

import "fmt"

// greetingPrompt asks the model for a first-contact greeting in the
// user's language.
func greetingPrompt(assistantName, userName, userMessage string) string {
	return fmt.Sprintf(`You are %s, a friendly artificial intelligence assistant.
This is your first interaction with the user.
The user has just sent the following message:
%q

Please greet the user by their name %q.
Respond in the same language as the user's message.
Keep the greeting short and welcoming.
Tell the user your name and that you are an AI assistant.
IMPORTANT: Only greet the user, tell your name and the fact that you are an artificial intelligence assistant.`,
		assistantName, userMessage, userName)
}

// waitPrompt asks for a one-sentence courtesy notice, in the user's
// language, sent before slow link processing.
func waitPrompt(userMessage string) string {
	return fmt.Sprintf(`You are a language expert. The user has just sent the following message:
%q

Please produce exactly one short sentence that says something along the lines of:
"Please wait while I check the link..."
but in the same language the user wrote in. Keep it very short.`, userMessage)
}

// toolSelectionPrompt frames the single tool-resolution pass. It carries
// the same history and session content as the final answer.
func toolSelectionPrompt(assistantName, scenarioPrompt, history, sessionContent string) string {
	if history == "" {
		history = "(no previous conversation)"
	}
	prompt := fmt.Sprintf(`You are %s. %s
Decide whether one of the available tools is needed to answer the user's
latest message. Call at most one tool. If no tool is needed, answer with
plain text instead.

Here is the previous conversation:
--------------------------------
%s
--------------------------------`, assistantName, scenarioPrompt, history)

	if sessionContent != "" {
		prompt += fmt.Sprintf(`

Here is additional content:
--------------------------------
%s
--------------------------------`, sessionContent)
	}
	return prompt
}

// finalResponsePrompt builds the system prompt for the final answer,
// combining the scenario persona, conversation history, session content
// and any tool result.
func finalResponsePrompt(assistantName, scenarioPrompt, history, sessionContent, toolResult string) string {
	if history == "" {
		history = "(no previous conversation)"
	}
	if sessionContent == "" {
		sessionContent = "No additional content provided."
	}
	prompt := fmt.Sprintf(`You are %s, an artificial intelligence assistant. %s
Respond in the same language as the user's latest message.
If you do not know the answer, say so honestly.
Use the conversation history and additional content below.

Here is the previous conversation:
--------------------------------
%s
--------------------------------

Here is additional content:
--------------------------------
%s
--------------------------------`, assistantName, scenarioPrompt, history, sessionContent)

	if toolResult != "" {
		prompt += fmt.Sprintf(`

A tool was just executed for this message. Base your answer on its result:
--------------------------------
%s
--------------------------------`, toolResult)
	}
	return prompt
}
