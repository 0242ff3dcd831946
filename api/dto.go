/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for API communication, decoupling the domain model
  from the external contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

AMOUNTS ON THE WIRE:
  Responses carry decimal.Decimal, which marshals as a plain JSON
  number with exact digits. Requests accept json.Number so "150.5" and
  150.5 both parse without a float64 round trip.
*/
package api

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/landflow/billing-engine/billing"
	"github.com/landflow/billing-engine/crm"
)

// =============================================================================
// INVOICES
// =============================================================================

type InvoiceDTO struct {
	ID     int64           `json:"id"`
	Client string          `json:"client"`
	Amount decimal.Decimal `json:"amount"`
	Date   string          `json:"date"`
	Status string          `json:"status"`
}

func toInvoiceDTO(inv billing.Invoice) InvoiceDTO {
	return InvoiceDTO{
		ID:     int64(inv.ID),
		Client: inv.Client,
		Amount: inv.Amount,
		Date:   inv.Date.String(),
		Status: string(inv.Status),
	}
}

func toInvoiceDTOs(invoices []billing.Invoice) []InvoiceDTO {
	out := make([]InvoiceDTO, len(invoices))
	for i, inv := range invoices {
		out[i] = toInvoiceDTO(inv)
	}
	return out
}

type CreateInvoiceRequest struct {
	Client string      `json:"client"`
	Amount json.Number `json:"amount"`
	Date   string      `json:"date"`
}

func (r CreateInvoiceRequest) draft() billing.Draft {
	return billing.Draft{Client: r.Client, Amount: r.Amount.String(), Date: r.Date}
}

// UpdateInvoiceRequest is a partial patch; absent fields stay untouched.
type UpdateInvoiceRequest struct {
	Client *string      `json:"client"`
	Amount *json.Number `json:"amount"`
	Date   *string      `json:"date"`
	Status *string      `json:"status"`
}

// patch converts the request to a domain patch, validating the field
// encodings (number, calendar date) on the way.
func (r UpdateInvoiceRequest) patch() (billing.Patch, error) {
	var p billing.Patch
	p.Client = r.Client
	if r.Amount != nil {
		amount, err := decimal.NewFromString(r.Amount.String())
		if err != nil {
			return billing.Patch{}, &billing.ValidationError{Field: "amount", Reason: "not a number"}
		}
		p.Amount = &amount
	}
	if r.Date != nil {
		date, err := billing.ParseDate(*r.Date)
		if err != nil {
			return billing.Patch{}, &billing.ValidationError{Field: "date", Reason: "not a calendar date"}
		}
		p.Date = &date
	}
	if r.Status != nil {
		status := billing.Status(*r.Status)
		p.Status = &status
	}
	return p, nil
}

type PayLinkDTO struct {
	URL string `json:"url"`
}

// =============================================================================
// CLIENTS / JOBS
// =============================================================================

type ClientDTO struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

func toClientDTO(c crm.Client) ClientDTO {
	return ClientDTO{ID: c.ID, Name: c.Name, Email: c.Email, Phone: c.Phone, Address: c.Address}
}

type CreateClientRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type JobDTO struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Client string `json:"client"`
	Date   string `json:"date"`
	Status string `json:"status"`
}

func toJobDTO(j crm.Job) JobDTO {
	return JobDTO{ID: j.ID, Title: j.Title, Client: j.Client, Date: j.Date.String(), Status: string(j.Status)}
}

type CreateJobRequest struct {
	Title  string `json:"title"`
	Client string `json:"client"`
	Date   string `json:"date"`
}

type SetJobStatusRequest struct {
	Status string `json:"status"`
}

// =============================================================================
// ERRORS
// =============================================================================

type ErrorDTO struct {
	Error string `json:"error"`
}
