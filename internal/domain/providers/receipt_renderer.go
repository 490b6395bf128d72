package providers

import (
	"io"

	"github.com/krafta/backend/internal/domain/entities"
)

// ReceiptRenderer writes a printable receipt for a paid booking
type ReceiptRenderer interface {
	Render(w io.Writer, view entities.BookingView) error
	ContentType() string
}
