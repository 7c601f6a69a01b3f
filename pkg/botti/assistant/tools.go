package assistant

import (
	"context"
	"fmt"
	"os"

	"github.com/bottihq/botti/pkg/botti/extract"
	"github.com/bottihq/botti/pkg/botti/gateway"
	"github.com/bottihq/botti/pkg/botti/scenario"
	"github.com/bottihq/botti/pkg/botti/store"
)

// resolveTool asks the model whether the message needs a tool, runs at
// most one, and returns the result text to feed the final answer. Empty
// string means no tool ran. Tool failures degrade to a result the model
// can apologize with, never a dropped reply. The tool pass sees the same
// context as the final answer: recent history plus session content, so
// scraped links and ingested files can steer tool choice.
func (a *Assistant) resolveTool(ctx context.Context, evt *gateway.Event, userID string, log logLike) string {
	recent, err := a.store.ListRecent(ctx, userID, a.cfg.HistoryWindow)
	if err != nil {
		log.Warn("loading history for tool pass failed", "error", err)
	}
	call, err := a.llm.CompleteWithTools(ctx,
		toolSelectionPrompt(a.cfg.AssistantName, a.scenario.ResponsePrompt,
			store.FormatHistory(recent), a.sessions.FormatContent(userID)),
		evt.Text, a.scenario.Tools())
	if err != nil {
		log.Warn("tool resolution failed", "error", err)
		return ""
	}
	if call == nil {
		return ""
	}

	name := call.Function.Name
	args, err := call.Function.Args()
	if err != nil {
		log.Warn("tool arguments malformed", "tool", name, "error", err)
		return fmt.Sprintf("Tool %s was requested but its arguments could not be parsed.", name)
	}
	log.Info("dispatching tool", "tool", name)

	if scenario.IsCoreTool(name) {
		return a.runCoreTool(ctx, evt, userID, name, args, log)
	}

	result, handled, err := a.scenario.Dispatch(ctx, name, args)
	if !handled {
		log.Warn("model proposed unknown tool", "tool", name)
		return ""
	}
	if err != nil {
		log.Warn("tool failed", "tool", name, "error", err)
		return fmt.Sprintf("Tool %s failed: %v", name, err)
	}
	return fmt.Sprintf("Result of %s:\n%s", name, result)
}

// runCoreTool executes the creative tools that need the media generator,
// the extractor or session state.
func (a *Assistant) runCoreTool(ctx context.Context, evt *gateway.Event, userID, name string, args map[string]any, log logLike) string {
	switch name {
	case scenario.ToolGenerateImage:
		prompt, _ := args["prompt"].(string)
		if prompt == "" {
			return "Image generation was requested without a prompt."
		}
		path, err := a.media.GenerateImage(ctx, prompt)
		if err != nil {
			log.Warn("image generation failed", "error", err)
			return fmt.Sprintf("Image generation failed: %v", err)
		}
		a.sessions.SetLatestImage(userID, path)
		// The image goes out before the text confirmation.
		if err := a.gw.SendImage(ctx, evt.ChatJID, path, ""); err != nil {
			log.Error("sending generated image failed", "error", err)
			return fmt.Sprintf("The image was generated but could not be sent: %v", err)
		}
		return "An image was generated from the prompt and already sent to the user. Confirm briefly."

	case scenario.ToolEditImage:
		prompt, _ := args["prompt"].(string)
		source := a.sessions.LatestImage(userID)
		if source == "" {
			return "Image editing was requested but there is no previous image to edit."
		}
		data, err := os.ReadFile(source)
		if err != nil {
			log.Warn("reading latest image failed", "path", source, "error", err)
			return fmt.Sprintf("The previous image could not be read: %v", err)
		}
		path, err := a.media.EditImage(ctx, data, prompt)
		if err != nil {
			log.Warn("image edit failed", "error", err)
			return fmt.Sprintf("Image editing failed: %v", err)
		}
		a.sessions.SetLatestImage(userID, path)
		if err := a.gw.SendImage(ctx, evt.ChatJID, path, ""); err != nil {
			log.Error("sending edited image failed", "error", err)
			return fmt.Sprintf("The image was edited but could not be sent: %v", err)
		}
		return "The image was edited as requested and already sent to the user. Confirm briefly."

	case scenario.ToolGenerateTTS:
		text, _ := args["text"].(string)
		if text == "" {
			return "Speech generation was requested without text."
		}
		path, err := a.media.SpeakText(ctx, text)
		if err != nil {
			log.Warn("speech synthesis failed", "error", err)
			return fmt.Sprintf("Speech generation failed: %v", err)
		}
		if err := a.gw.SendAudio(ctx, evt.ChatJID, path); err != nil {
			log.Error("sending audio failed", "error", err)
			return fmt.Sprintf("The audio was generated but could not be sent: %v", err)
		}
		return "The speech audio was generated and already sent to the user. Confirm briefly."

	case scenario.ToolWebSearch:
		query, _ := args["query"].(string)
		if query == "" {
			return "Web search was requested without a query."
		}
		results, err := a.extract.Search(ctx, query, 3)
		if err != nil {
			log.Warn("web search failed", "query", query, "error", err)
			return fmt.Sprintf("Web search for %q failed: %v", query, err)
		}
		return fmt.Sprintf("Web search results for %q:\n%s",
			query, extract.FormatSearchResults(results))
	}
	return ""
}
