package server

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"lookup/internal/middleware"
	"lookup/internal/models"

	"github.com/gofiber/fiber/v2"
)

// parseBody decodes the request body into out. An empty body leaves out
// zeroed so the field checks report what is missing.
func parseBody(c *fiber.Ctx, out any) error {
	if len(bytes.TrimSpace(c.Body())) == 0 {
		return nil
	}
	if err := c.BodyParser(out); err != nil {
		return models.NewValidationError("Invalid request body")
	}
	return nil
}

// respondError writes the error response. Server-side failures are logged
// with their cause, which never reaches the client.
func respondError(c *fiber.Ctx, err error) error {
	if models.StatusFor(err) >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request error",
			"method", c.Method(),
			"path", c.Path(),
			"error", err,
		)
	}
	return models.RespondWithError(c, err)
}

// looseString accepts a JSON string or number; mobile clients send Kakao ids
// either way.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = looseString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	*s = looseString(num.String())
	return nil
}

func (s *looseString) UnmarshalText(text []byte) error {
	*s = looseString(text)
	return nil
}

func (s looseString) String() string {
	return strings.TrimSpace(string(s))
}

// parseBoolFlag normalizes a form flag to a strict boolean. Unknown values are false.
func parseBoolFlag(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "t", "true", "y", "yes", "on":
		return true
	default:
		return false
	}
}

// parseFeedID returns 0 for anything that is not a positive integer.
func parseFeedID(v string) uint {
	id, err := strconv.ParseUint(strings.TrimSpace(v), 10, 32)
	if err != nil {
		return 0
	}
	return uint(id)
}
