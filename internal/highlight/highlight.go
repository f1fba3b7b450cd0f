// Package highlight wraps dry-run bypass text in the configurable
// TEIP_HIGHLIGHT template so a preview run shows exactly what would be
// routed to a helper, without a helper ever being spawned.
package highlight

import (
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidTemplate is returned when a template has no "{}" placeholder
// for the wrapped text to substitute into, or more than one.
var ErrInvalidTemplate = errors.New("highlight template must contain exactly one {} placeholder")

// Wrapper frames bypass text for dry-run preview.
type Wrapper struct {
	prefix, suffix string
}

// New builds a Wrapper from a template containing exactly one "{}"
// placeholder, matching original teip's HL[0]/HL[1] split.
func New(template string) (*Wrapper, error) {
	parts := strings.SplitN(template, "{}", 2)
	if len(parts) != 2 || strings.Contains(parts[1], "{}") {
		return nil, ErrInvalidTemplate
	}
	return &Wrapper{prefix: parts[0], suffix: parts[1]}, nil
}

// Wrap frames text with the configured prefix/suffix.
func (w *Wrapper) Wrap(text string) string {
	return w.prefix + text + w.suffix
}
