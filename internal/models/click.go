package models

import "time"

// PendingClick is one unnotified click row, flattened from the stored
// procedure's nested click/contenido document.
type PendingClick struct {
	RestaurantID        int        `json:"nroRestaurante"`
	LanguageID          *int       `json:"nroIdioma,omitempty"`
	ContentID           int        `json:"nroContenido"`
	ClickID             int        `json:"nroClick"`
	RegisteredAt        *time.Time `json:"fechaClick,omitempty"`
	CustomerID          *int       `json:"nroCliente,omitempty"` // nil = anonymous
	ClickCost           float64    `json:"costoClick"`
	ExternalContentCode string     `json:"codContenidoRestaurante"`
	Notified            bool       `json:"notificado"`
}

// Notifiable reports whether the record carries everything the external
// endpoint needs. ClickID doubles as the confirmation idempotency key.
func (c PendingClick) Notifiable() bool {
	return c.RestaurantID > 0 && c.ContentID > 0 && c.ClickID > 0 && c.ExternalContentCode != ""
}

// ClickRequest registers a click. Restaurant and language may be omitted
// when the content id alone identifies the target; the store resolves them.
type ClickRequest struct {
	RestaurantID *int       `json:"nroRestaurante,omitempty"`
	LanguageID   *int       `json:"nroIdioma,omitempty"`
	ContentID    int        `json:"nroContenido" binding:"required"`
	CustomerID   *int       `json:"nroCliente,omitempty"`
	RegisteredAt *time.Time `json:"fechaClick,omitempty"`
}

// ClickNotification is the outbound payload for the external billing
// endpoint. Cost is always present, zero when the content has none.
type ClickNotification struct {
	ExternalContentCode string  `json:"codContenidoRestaurante"`
	ClickCost           float64 `json:"costoClick"`
}
