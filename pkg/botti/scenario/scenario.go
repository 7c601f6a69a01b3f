// Package scenario defines the assistant's deployment personas. Every
// scenario carries the core creative tools; business scenarios add domain
// tools served by a mocked backend.
package scenario

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/bottihq/botti/pkg/botti/llm"
)

// Core tool names shared by all scenarios. These are dispatched by the
// assistant itself since they need the media generator and session state.
const (
	ToolGenerateImage = "generate_image_tool"
	ToolEditImage     = "edit_image_tool"
	ToolGenerateTTS   = "generate_tts_tool"
	ToolWebSearch     = "web_search_tool"
)

// HandlerFunc executes a domain tool and returns its result payload.
type HandlerFunc func(ctx context.Context, args map[string]any) (any, error)

// Scenario is one deployment persona: a name, a response style prompt and
// the tool set exposed to the model.
type Scenario struct {
	Name           string
	ResponsePrompt string

	domainTools []llm.ToolDefinition
	handlers    map[string]HandlerFunc
}

// Tools returns the full tool set: core creative tools plus this
// scenario's domain tools.
func (s *Scenario) Tools() []llm.ToolDefinition {
	out := make([]llm.ToolDefinition, 0, len(coreTools)+len(s.domainTools))
	out = append(out, coreTools...)
	out = append(out, s.domainTools...)
	return out
}

// IsCoreTool reports whether name is one of the creative tools handled by
// the assistant rather than the scenario backend.
func IsCoreTool(name string) bool {
	switch name {
	case ToolGenerateImage, ToolEditImage, ToolGenerateTTS, ToolWebSearch:
		return true
	}
	return false
}

// Dispatch runs the named domain tool and returns its result as JSON.
// The second return is false when the scenario has no such tool.
func (s *Scenario) Dispatch(ctx context.Context, name string, args map[string]any) (string, bool, error) {
	h, ok := s.handlers[name]
	if !ok {
		return "", false, nil
	}
	result, err := h(ctx, args)
	if err != nil {
		return "", true, fmt.Errorf("tool %s: %w", name, err)
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return "", true, fmt.Errorf("encoding %s result: %w", name, err)
	}
	return string(payload), true, nil
}

var coreTools = []llm.ToolDefinition{
	llm.MakeToolDefinition(ToolGenerateImage,
		"Generate a new image from a user prompt. Only provide the prompt.",
		objSchema(map[string]any{
			"prompt": map[string]any{"type": "string"},
		}, "prompt")),
	llm.MakeToolDefinition(ToolEditImage,
		"Edit the latest image using a user prompt. Only provide the prompt how the image should be edited.",
		objSchema(map[string]any{
			"prompt": map[string]any{"type": "string"},
		}, "prompt")),
	llm.MakeToolDefinition(ToolGenerateTTS,
		"Generate speech audio from text. Only provide the text to be spoken. This should be used when the user request audio output.",
		objSchema(map[string]any{
			"text": map[string]any{"type": "string"},
		}, "text")),
	llm.MakeToolDefinition(ToolWebSearch,
		"Search the web for up-to-date information. Only provide the search query.",
		objSchema(map[string]any{
			"query": map[string]any{"type": "string"},
		}, "query")),
}

// Registry holds the configured scenarios.
type Registry struct {
	scenarios map[string]*Scenario
}

// NewRegistry builds the registry with all scenarios wired to the backend.
func NewRegistry(backend *Backend) *Registry {
	r := &Registry{scenarios: map[string]*Scenario{}}
	for _, s := range []*Scenario{
		newBaseScenario(),
		newHairdresserScenario(backend),
		newCarPartsScenario(backend),
		newBookstoreScenario(backend),
	} {
		r.scenarios[s.Name] = s
	}
	return r
}

// Get returns the named scenario.
func (r *Registry) Get(name string) (*Scenario, error) {
	s, ok := r.scenarios[name]
	if !ok {
		return nil, fmt.Errorf("unknown scenario %q (available: %v)", name, r.Names())
	}
	return s, nil
}

// Names lists the registered scenario names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.scenarios))
	for name := range r.scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ---------- Scenario Definitions ----------

func newBaseScenario() *Scenario {
	return &Scenario{
		Name: "base",
		ResponsePrompt: "You are a helpful general-purpose assistant. " +
			"Answer naturally and concisely in the language of the user's latest message.",
	}
}

func newHairdresserScenario(b *Backend) *Scenario {
	s := &Scenario{
		Name: "hairdresser",
		ResponsePrompt: "You are the assistant of a hairdresser salon. Help customers " +
			"check availability, browse services, review their order history and book or " +
			"cancel appointments. Answer in the language of the user's latest message.",
		handlers: map[string]HandlerFunc{},
	}
	s.addTool(llm.MakeToolDefinition("check_appointment_calendar_tool",
		"Check the appointment calendar for a date range. Provide start and end dates.",
		objSchema(map[string]any{
			"start_date": map[string]any{"type": "string"},
			"end_date":   map[string]any{"type": "string"},
		}, "start_date", "end_date")),
		func(ctx context.Context, args map[string]any) (any, error) {
			start, err := strArg(args, "start_date")
			if err != nil {
				return nil, err
			}
			end, err := strArg(args, "end_date")
			if err != nil {
				return nil, err
			}
			return b.CheckAppointmentCalendar(start, end), nil
		})
	s.addTool(llm.MakeToolDefinition("get_services_tool",
		"Get available services based on the user's gender.",
		objSchema(map[string]any{
			"gender": map[string]any{"type": "string"},
		}, "gender")),
		func(ctx context.Context, args map[string]any) (any, error) {
			gender, err := strArg(args, "gender")
			if err != nil {
				return nil, err
			}
			return b.GetServices(gender), nil
		})
	s.addTool(llm.MakeToolDefinition("get_order_history_tool",
		"Get the user's order history by their phone number.",
		objSchema(map[string]any{
			"phone_number": map[string]any{"type": "string"},
		}, "phone_number")),
		func(ctx context.Context, args map[string]any) (any, error) {
			phone, err := strArg(args, "phone_number")
			if err != nil {
				return nil, err
			}
			return b.GetOrderHistory(phone), nil
		})
	s.addTool(llm.MakeToolDefinition("book_appointment_tool",
		"Book an appointment for a service at a preferred time. Provide the user's phone number, service, and preferred time.",
		objSchema(map[string]any{
			"phone_number":   map[string]any{"type": "string"},
			"service":        map[string]any{"type": "string"},
			"preferred_time": map[string]any{"type": "string"},
		}, "phone_number", "service", "preferred_time")),
		func(ctx context.Context, args map[string]any) (any, error) {
			phone, err := strArg(args, "phone_number")
			if err != nil {
				return nil, err
			}
			service, err := strArg(args, "service")
			if err != nil {
				return nil, err
			}
			when, err := strArg(args, "preferred_time")
			if err != nil {
				return nil, err
			}
			return b.BookAppointment(phone, service, when), nil
		})
	s.addTool(llm.MakeToolDefinition("cancel_appointment_tool",
		"Cancel an appointment by the user's phone number.",
		objSchema(map[string]any{
			"phone_number": map[string]any{"type": "string"},
		}, "phone_number")),
		func(ctx context.Context, args map[string]any) (any, error) {
			phone, err := strArg(args, "phone_number")
			if err != nil {
				return nil, err
			}
			return b.CancelAppointment(phone), nil
		})
	return s
}

func newCarPartsScenario(b *Backend) *Scenario {
	s := &Scenario{
		Name: "car_parts_retailer",
		ResponsePrompt: "You are the assistant of a car parts retailer. Help customers " +
			"look up their car by license plate, find compatible parts, place orders and " +
			"check order status. Answer in the language of the user's latest message.",
		handlers: map[string]HandlerFunc{},
	}
	s.addTool(llm.MakeToolDefinition("find_car_info_with_plate_tool",
		"Find car information using the license plate number.",
		objSchema(map[string]any{
			"license_plate": map[string]any{"type": "string"},
		}, "license_plate")),
		func(ctx context.Context, args map[string]any) (any, error) {
			plate, err := strArg(args, "license_plate")
			if err != nil {
				return nil, err
			}
			return b.FindCarInfo(plate), nil
		})
	s.addTool(llm.MakeToolDefinition("find_compatible_part_tool",
		"Find compatible car parts based on the license plate and part type.",
		objSchema(map[string]any{
			"license_plate": map[string]any{"type": "string"},
			"part_type":     map[string]any{"type": "string"},
		}, "license_plate", "part_type")),
		func(ctx context.Context, args map[string]any) (any, error) {
			plate, err := strArg(args, "license_plate")
			if err != nil {
				return nil, err
			}
			partType, err := strArg(args, "part_type")
			if err != nil {
				return nil, err
			}
			return b.FindCompatibleParts(plate, partType), nil
		})
	s.addTool(llm.MakeToolDefinition("place_car_part_order_tool",
		"Place an order for a car part. Requires the user's phone number, part ID, and quantity.",
		objSchema(map[string]any{
			"phone_number": map[string]any{"type": "string"},
			"part_id":      map[string]any{"type": "string"},
			"quantity":     map[string]any{"type": "integer"},
		}, "phone_number", "part_id", "quantity")),
		func(ctx context.Context, args map[string]any) (any, error) {
			phone, err := strArg(args, "phone_number")
			if err != nil {
				return nil, err
			}
			partID, err := strArg(args, "part_id")
			if err != nil {
				return nil, err
			}
			qty, err := intArg(args, "quantity")
			if err != nil {
				return nil, err
			}
			return b.PlacePartOrder(phone, partID, qty), nil
		})
	s.addTool(llm.MakeToolDefinition("check_car_part_order_tool",
		"Check the status of a car part order by the user's phone number.",
		objSchema(map[string]any{
			"phone_number": map[string]any{"type": "string"},
		}, "phone_number")),
		func(ctx context.Context, args map[string]any) (any, error) {
			phone, err := strArg(args, "phone_number")
			if err != nil {
				return nil, err
			}
			return b.CheckPartOrders(phone), nil
		})
	return s
}

func newBookstoreScenario(b *Backend) *Scenario {
	s := &Scenario{
		Name: "bookstore",
		ResponsePrompt: "You are the assistant of a bookstore. Help customers view their " +
			"order history, get book suggestions, check stock and reserve or cancel book " +
			"reservations. Answer in the language of the user's latest message.",
		handlers: map[string]HandlerFunc{},
	}
	s.addTool(llm.MakeToolDefinition("view_book_order_history_tool",
		"View the user's book order history by their phone number.",
		objSchema(map[string]any{
			"phone_number": map[string]any{"type": "string"},
		}, "phone_number")),
		func(ctx context.Context, args map[string]any) (any, error) {
			phone, err := strArg(args, "phone_number")
			if err != nil {
				return nil, err
			}
			return b.ViewBookOrderHistory(phone), nil
		})
	s.addTool(llm.MakeToolDefinition("suggest_books_tool",
		"Suggest books based on genre or author. If both are provided, prioritize genre.",
		objSchema(map[string]any{
			"genre":  map[string]any{"type": "string"},
			"author": map[string]any{"type": "string"},
		})),
		func(ctx context.Context, args map[string]any) (any, error) {
			genre := optStrArg(args, "genre")
			author := optStrArg(args, "author")
			return b.SuggestBooks(genre, author), nil
		})
	s.addTool(llm.MakeToolDefinition("check_book_stock_tool",
		"Check if a book is in stock by title and optionally author.",
		objSchema(map[string]any{
			"title":  map[string]any{"type": "string"},
			"author": map[string]any{"type": "string"},
		}, "title")),
		func(ctx context.Context, args map[string]any) (any, error) {
			title, err := strArg(args, "title")
			if err != nil {
				return nil, err
			}
			return b.CheckBookStock(title, optStrArg(args, "author")), nil
		})
	s.addTool(llm.MakeToolDefinition("reserve_book_tool",
		"Reserve a book for the user. Requires phone number and book title.",
		objSchema(map[string]any{
			"phone_number": map[string]any{"type": "string"},
			"title":        map[string]any{"type": "string"},
		}, "phone_number", "title")),
		func(ctx context.Context, args map[string]any) (any, error) {
			phone, err := strArg(args, "phone_number")
			if err != nil {
				return nil, err
			}
			title, err := strArg(args, "title")
			if err != nil {
				return nil, err
			}
			return b.ReserveBook(phone, title), nil
		})
	s.addTool(llm.MakeToolDefinition("cancel_book_tool",
		"Cancel a book reservation by the user's phone number and book title.",
		objSchema(map[string]any{
			"phone_number": map[string]any{"type": "string"},
			"title":        map[string]any{"type": "string"},
		}, "phone_number", "title")),
		func(ctx context.Context, args map[string]any) (any, error) {
			phone, err := strArg(args, "phone_number")
			if err != nil {
				return nil, err
			}
			title, err := strArg(args, "title")
			if err != nil {
				return nil, err
			}
			return b.CancelBookReservation(phone, title), nil
		})
	return s
}

func (s *Scenario) addTool(def llm.ToolDefinition, h HandlerFunc) {
	s.domainTools = append(s.domainTools, def)
	s.handlers[def.Function.Name] = h
}

// ---------- Argument Helpers ----------

func objSchema(props map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func strArg(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing required argument %q", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("argument %q must be a non-empty string", key)
	}
	return s, nil
}

func optStrArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func intArg(args map[string]any, key string) (int, error) {
	v, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("missing required argument %q", key)
	}
	switch n := v.(type) {
	case float64:
		return int(n), nil
	case int:
		return n, nil
	default:
		return 0, fmt.Errorf("argument %q must be a number", key)
	}
}
