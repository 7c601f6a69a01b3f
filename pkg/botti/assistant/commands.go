package assistant

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/bottihq/botti/pkg/botti/gateway"
)

// handleCommand processes a ! message. Non-admins are dropped silently so
// the command surface stays invisible to regular users. Command replies
// are never persisted to conversation history.
func (a *Assistant) handleCommand(ctx context.Context, evt *gateway.Event, userID string, log logLike) {
	if !a.isAdmin(evt.SenderJID) {
		log.Debug("command from non-admin, dropping", "text", evt.Text)
		return
	}

	cmd := strings.Fields(strings.TrimSpace(evt.Text))[0]
	log.Info("processing command", "command", cmd)

	reply := ""
	switch cmd {
	case "!reset":
		if err := a.store.DeleteAll(ctx, userID); err != nil {
			reply = fmt.Sprintf("[SYSTEM] Reset failed: %v", err)
			break
		}
		a.sessions.Clear(userID)
		reply = "[SYSTEM] Cleared conversation history!"

	case "!pause":
		a.paused.Store(true)
		reply = "[SYSTEM] Paused. Messages will be ignored until !resume."

	case "!resume":
		a.paused.Store(false)
		reply = "[SYSTEM] Resumed."

	case "!files":
		reply = a.listDownloads()

	case "!prompts":
		reply = fmt.Sprintf("[COMMAND] Prompt info (%s):\n%s",
			a.scenario.Name, a.scenario.ResponsePrompt)

	case "!commands":
		reply = "[COMMAND] Available commands: !reset, !pause, !resume, !files, !prompts, !commands"

	default:
		reply = "[COMMAND] Unknown command."
	}

	if err := a.gw.SendText(ctx, evt.ChatJID, reply); err != nil {
		log.Error("sending command reply failed", "error", err)
	}
}

// listDownloads renders the staged attachment files.
func (a *Assistant) listDownloads() string {
	entries, err := os.ReadDir(a.cfg.DownloadDir)
	if err != nil {
		return "[COMMAND] No files."
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "[COMMAND] No files."
	}
	sort.Strings(names)
	return "[COMMAND] File info:\n" + strings.Join(names, "\n")
}
