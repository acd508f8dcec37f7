// Package export renders a built report model to downloadable formats. Every
// sink consumes the same model and the same FieldValue rendering, so each
// format shows identical values.
package export

import (
	"io"

	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/report"
)

// Sink writes one representation of a report model.
type Sink interface {
	// ContentType is the MIME type the HTTP layer advertises.
	ContentType() string
	// Extension is the file extension without the dot.
	Extension() string
	// Write renders the model.
	Write(w io.Writer, m report.Model) error
}
