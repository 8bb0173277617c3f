package api

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/drakos74/signal-router/internal/model"
)

// Command is the definitions of metadata for a command.
type Command struct {
	ID      int
	User    string
	ChatID  int64
	Content string
}

// ParseCommand creates a new command from the given text.
func ParseCommand(id int, user string, text string) Command {
	return Command{
		ID:      id,
		User:    user,
		Content: strings.TrimSpace(text),
	}
}

// Exec returns the command name without any bot mention i.e. '/set@my_bot' -> '/set'.
func (c Command) Exec() string {
	cmd := strings.Fields(c.Content)
	if len(cmd) == 0 {
		return ""
	}
	return strings.SplitN(cmd[0], "@", 2)[0]
}

// Validator is a validation function that checks the string for the given type.
type Validator func(string) error

// Validate validates the command with the given arguments.
// It returns the command name.
func (c Command) Validate(user map[string]struct{}, exe map[string]struct{}, args ...Validator) (string, error) {
	if _, ok := user[c.User]; !ok && len(user) > 0 {
		return "", fmt.Errorf("command cannot be executed: %s: %w", c.User, model.ValidationErr)
	}
	cmd := strings.Fields(c.Content)
	if len(cmd) == 0 {
		return "", fmt.Errorf("cannot parse empty command: %s: %w", c.Content, model.ValidationErr)
	}
	exec := c.Exec()
	if _, ok := exe[exec]; !ok && len(exe) > 0 {
		return exec, fmt.Errorf("unknown command: %s: %w", exec, model.ValidationErr)
	}

	options := cmd[1:]
	if len(options) != len(args) {
		return exec, fmt.Errorf("expected %d arguments but got %d: %w", len(args), len(options), model.ValidationErr)
	}

	for i, arg := range args {
		err := arg(options[i])
		if err != nil {
			return exec, fmt.Errorf("error for argument '%s' at %d: %s: %w", options[i], i, err.Error(), model.ValidationErr)
		}
	}
	return exec, nil
}

// AnyUser allows the command for all users.
func AnyUser() map[string]struct{} {
	return map[string]struct{}{}
}

// Contains is a predefined validator for the argument being one of the given values.
func Contains(arg ...string) map[string]struct{} {
	args := make(map[string]struct{})
	for _, a := range arg {
		args[a] = struct{}{}
	}
	return args
}

// NotEmpty is a predefined Validator that checks if the argument is empty.
func NotEmpty(s string) error {
	if s == "" {
		return fmt.Errorf("cannot be empty")
	}
	return nil
}

// Any is a predefined Validator that accepts any value.
func Any(v *string) Validator {
	return func(s string) error {
		*v = s
		return nil
	}
}

// OneOf is a predefined Validator checking that the value is on of the provided arguments.
// Matching ignores case and the reference receives the matching argument.
func OneOf(v *string, args ...string) Validator {
	return func(s string) error {
		for _, arg := range args {
			if strings.EqualFold(arg, s) {
				if v != nil {
					*v = arg
				}
				return nil
			}
		}
		return fmt.Errorf("must be one of %v", args)
	}
}

// Int is a predefined Validator checking that the argument is an int.
// it passes the reference to the value to the given interface argument.
func Int(d *int) Validator {
	return func(s string) error {
		number, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return err
		}
		*d = int(number)
		return nil
	}
}

// Float is a predefined Validator checking that the argument is a finite number.
func Float(f *float64) Validator {
	return func(s string) error {
		number, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		if math.IsNaN(number) || math.IsInf(number, 0) {
			return fmt.Errorf("not a finite number")
		}
		*f = number
		return nil
	}
}

// Ticker is a predefined Validator for a ticker symbol.
func Ticker(t *model.Ticker) Validator {
	return func(s string) error {
		ticker := model.NewTicker(s)
		if ticker == model.NoTicker {
			return fmt.Errorf("ticker cannot be empty")
		}
		*t = ticker
		return nil
	}
}

// Date is a predefined Validator for a date in the given layout.
func Date(d *time.Time, layout string) Validator {
	return func(s string) error {
		t, err := time.Parse(layout, s)
		if err != nil {
			return fmt.Errorf("expected date as %s", layout)
		}
		*d = t
		return nil
	}
}
