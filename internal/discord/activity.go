package discord

import "fmt"

// ActivityType selects the verb Discord renders before the status
// ("Playing", "Listening to", ...).
type ActivityType int

const (
	Playing   ActivityType = 0
	Listening ActivityType = 2
	Watching  ActivityType = 3
	Competing ActivityType = 5
)

// MaxButtons is the number of buttons Discord accepts on one activity.
const MaxButtons = 2

// Button is a clickable link rendered under the presence.
type Button struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Party carries multiplayer occupancy as a [current, max] pair.
type Party struct {
	ID   string `json:"id,omitempty"`
	Size []int  `json:"size,omitempty"` // [current, max]
}

// Assets names the large and small image asset keys registered with the
// application, plus their hover texts.
type Assets struct {
	LargeImage string `json:"large_image,omitempty"`
	LargeText  string `json:"large_text,omitempty"`
	SmallImage string `json:"small_image,omitempty"`
	SmallText  string `json:"small_text,omitempty"`
}

// Timestamps drive the elapsed / remaining timer on the presence.
type Timestamps struct {
	Start int64 `json:"start,omitempty"`
	End   int64 `json:"end,omitempty"`
}

// Activity is the rich presence payload sent to Discord.
type Activity struct {
	Type       ActivityType `json:"type"`
	State      string       `json:"state,omitempty"`
	Details    string       `json:"details,omitempty"`
	Timestamps *Timestamps  `json:"timestamps,omitempty"`
	Assets     *Assets      `json:"assets,omitempty"`
	Party      *Party       `json:"party,omitempty"`
	Buttons    []Button     `json:"buttons,omitempty"`
}

// ValidationError reports a field that violates Discord's limits. It is
// returned before anything is written to the connection, so the previously
// visible presence is never disturbed by an invalid update.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validate checks the activity against the limits Discord enforces
// server-side, so malformed updates fail locally with a useful message.
func (a *Activity) Validate() error {
	if len(a.Buttons) > MaxButtons {
		return &ValidationError{
			Field:  "buttons",
			Reason: fmt.Sprintf("at most %d buttons allowed, got %d", MaxButtons, len(a.Buttons)),
		}
	}
	for i, b := range a.Buttons {
		if b.Label == "" || b.URL == "" {
			return &ValidationError{
				Field:  "buttons",
				Reason: fmt.Sprintf("button %d must have both label and url", i),
			}
		}
	}

	if a.Party != nil && len(a.Party.Size) > 0 {
		if len(a.Party.Size) != 2 {
			return &ValidationError{
				Field:  "party_size",
				Reason: fmt.Sprintf("expected [current, max] pair, got %d values", len(a.Party.Size)),
			}
		}
		current, max := a.Party.Size[0], a.Party.Size[1]
		if current < 1 || max < 1 {
			return &ValidationError{
				Field:  "party_size",
				Reason: fmt.Sprintf("sizes must be at least 1, got (%d, %d)", current, max),
			}
		}
		if current > max {
			return &ValidationError{
				Field:  "party_size",
				Reason: fmt.Sprintf("current size %d exceeds max size %d", current, max),
			}
		}
	}

	return nil
}
