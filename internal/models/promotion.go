package models

import (
	"encoding/json"
	"time"
)

// RestaurantPromotions is the assembled promotions document for one
// restaurant: header data plus its promotional contents.
type RestaurantPromotions struct {
	RestaurantID int                 `json:"nroRestaurante"`
	LegalName    string              `json:"razonSocial"`
	Contents     []RestaurantContent `json:"contenidos"`
}

const dateLayout = "2006-01-02"

// Date is a calendar date the way the procedures emit validity bounds
// ("2025-06-01", no time component). Full RFC3339 timestamps are accepted
// on input too; output is always date-only.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		d.Time = time.Time{}
		return nil
	}
	if t, err := time.Parse(dateLayout, raw); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return json.Marshal("")
	}
	return json.Marshal(d.Format(dateLayout))
}

// RestaurantContent is one promotional content entry. After normalization
// every field holds a native JSON value.
type RestaurantContent struct {
	ContentID           int     `json:"nroContenido"`
	BranchID            *int    `json:"nroSucursal,omitempty"`
	BranchName          string  `json:"nombreSucursal,omitempty"`
	LanguageID          int     `json:"nroIdioma"`
	LanguageCode        string  `json:"codIdioma,omitempty"`
	LanguageName        string  `json:"nombreIdioma,omitempty"`
	PromotionalText     string  `json:"textoPromocional,omitempty"`
	PublishText         string  `json:"textoPublicacion,omitempty"`
	ValidFrom           *Date   `json:"fechaDesde,omitempty"`
	ValidUntil          *Date   `json:"fechaHasta,omitempty"`
	Image               string  `json:"imagen,omitempty"`
	ClickCost           float64 `json:"costoClick"`
	ExternalContentCode string  `json:"codContenidoRestaurante,omitempty"`
	Current             bool    `json:"vigente"`
}

// CurrentAt reports whether the content's validity window covers t. An
// open bound counts as satisfied; the end date is inclusive through its
// whole day.
func (c RestaurantContent) CurrentAt(t time.Time) bool {
	if c.ValidFrom != nil && t.Before(c.ValidFrom.Time) {
		return false
	}
	if c.ValidUntil != nil && !t.Before(c.ValidUntil.AddDate(0, 0, 1)) {
		return false
	}
	return true
}
