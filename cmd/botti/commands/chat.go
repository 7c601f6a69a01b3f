package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/bottihq/botti/pkg/botti/extract"
	"github.com/bottihq/botti/pkg/botti/llm"
	"github.com/bottihq/botti/pkg/botti/media"
	"github.com/bottihq/botti/pkg/botti/scenario"
	"github.com/bottihq/botti/pkg/botti/store"
)

// newChatCmd creates the `botti chat` command: a local REPL that talks to
// the assistant without WhatsApp. Useful for trying out scenarios and
// prompts before going live.
func newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Chat with the assistant locally",
		Long: `Talk to the assistant from the terminal, without WhatsApp.
Send a single message as an argument, or start an interactive session.

Examples:
  botti chat "What time is it in Tokyo?"
  botti chat --scenario bookstore`,
		Args: cobra.MaximumNArgs(1),
		RunE: runChat,
	}

	cmd.Flags().String("scenario", "", "scenario override (base, hairdresser, car_parts_retailer, bookstore)")
	return cmd
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if override, _ := cmd.Flags().GetString("scenario"); override != "" {
		cfg.Scenario = override
	}

	logger := newLogger(cmd, "error")

	scn, err := scenario.NewRegistry(scenario.NewBackend()).Get(cfg.Scenario)
	if err != nil {
		return err
	}

	repl := &chatSession{
		llm:      llm.NewClient(cfg.LLM, logger),
		media:    media.New(cfg.Media, logger),
		extract:  extract.New(logger),
		scenario: scn,
		name:     cfg.AssistantName,
	}

	if len(args) > 0 {
		reply, err := repl.turn(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(reply)
		return nil
	}

	return repl.interactive()
}

// chatSession is a local, single-user rendition of the message pipeline:
// tool pass then final answer, with in-memory history.
type chatSession struct {
	llm      *llm.Client
	media    *media.Generator
	extract  *extract.Extractor
	scenario *scenario.Scenario
	name     string

	history   []store.Message
	lastImage string
}

func (c *chatSession) interactive() error {
	fmt.Printf("Chatting with %s (scenario: %s). Type 'exit' to quit.\n\n",
		c.name, c.scenario.Name)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "you> ",
		HistoryFile:     filepath.Join(os.TempDir(), ".botti_chat_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("initializing readline: %w", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				fmt.Println("Bye!")
				return nil
			}
			return err
		}
		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			fmt.Println("Bye!")
			return nil
		}

		reply, err := c.turn(context.Background(), input)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		fmt.Printf("%s> %s\n", c.name, reply)
	}
}

// turn runs one conversation turn: optional link scrape, one tool pass,
// then the final answer.
func (c *chatSession) turn(ctx context.Context, input string) (string, error) {
	var blocks []string

	if link := extract.FindFirstURL(input); link != "" {
		content, err := c.extract.ScrapeURL(ctx, link)
		if err != nil {
			blocks = append(blocks, fmt.Sprintf("[link %s could not be read: %v]", link, err))
		} else {
			blocks = append(blocks, fmt.Sprintf("Content of %s:\n%s", link, content))
		}
	}

	if result := c.runTool(ctx, input); result != "" {
		blocks = append(blocks, result)
	}

	system := c.scenario.ResponsePrompt + "\n\nConversation so far:\n" +
		store.FormatHistory(c.history)
	if len(blocks) > 0 {
		system += "\n\nAdditional context:\n" + strings.Join(blocks, "\n\n")
	}

	reply, err := c.llm.Complete(ctx, system, input)
	if err != nil {
		return "", err
	}

	c.history = append(c.history,
		store.Message{Content: input},
		store.Message{Content: reply, FromMe: true},
	)
	return reply, nil
}

// runTool asks the model to pick at most one tool and executes it. Errors
// degrade to context strings so the conversation keeps going.
func (c *chatSession) runTool(ctx context.Context, input string) string {
	call, err := c.llm.CompleteWithTools(ctx,
		c.scenario.ResponsePrompt, input, c.scenario.Tools())
	if err != nil || call == nil {
		return ""
	}
	args, err := call.Function.Args()
	if err != nil {
		return fmt.Sprintf("Tool %s was called with malformed arguments.", call.Function.Name)
	}

	if scenario.IsCoreTool(call.Function.Name) {
		return c.runCoreTool(ctx, call.Function.Name, args)
	}

	result, handled, err := c.scenario.Dispatch(ctx, call.Function.Name, args)
	if err != nil {
		return fmt.Sprintf("Tool %s failed: %v", call.Function.Name, err)
	}
	if !handled {
		return ""
	}
	return fmt.Sprintf("Result of %s:\n%s", call.Function.Name, result)
}

func (c *chatSession) runCoreTool(ctx context.Context, name string, args map[string]any) string {
	prompt, _ := args["prompt"].(string)

	switch name {
	case scenario.ToolGenerateImage:
		path, err := c.media.GenerateImage(ctx, prompt)
		if err != nil {
			return fmt.Sprintf("Image generation failed: %v", err)
		}
		c.lastImage = path
		return fmt.Sprintf("An image was generated and saved to %s. Confirm briefly.", path)

	case scenario.ToolEditImage:
		if c.lastImage == "" {
			return "Image editing was requested but there is no previous image to edit."
		}
		data, err := os.ReadFile(c.lastImage)
		if err != nil {
			return fmt.Sprintf("The previous image could not be read: %v", err)
		}
		path, err := c.media.EditImage(ctx, data, prompt)
		if err != nil {
			return fmt.Sprintf("Image editing failed: %v", err)
		}
		c.lastImage = path
		return fmt.Sprintf("The edited image was saved to %s. Confirm briefly.", path)

	case scenario.ToolGenerateTTS:
		text, _ := args["text"].(string)
		path, err := c.media.SpeakText(ctx, text)
		if err != nil {
			return fmt.Sprintf("Speech generation failed: %v", err)
		}
		return fmt.Sprintf("Speech audio was saved to %s. Confirm briefly.", path)

	case scenario.ToolWebSearch:
		query, _ := args["query"].(string)
		results, err := c.extract.Search(ctx, query, 3)
		if err != nil {
			return fmt.Sprintf("Web search failed: %v", err)
		}
		return "Web search results:\n" + extract.FormatSearchResults(results)
	}
	return ""
}
