package feed

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/model"
)

const CSVContentType = "text/csv; charset=utf-8"

var CSVHeader = []string{
	"id", "status", "start_iso", "end_iso", "customer_name", "customer_email", "customer_phone",
	"service_id", "staff_id", "amount_cents_total", "amount_cents_due_now", "currency",
}

// CSVWriter streams appointment rows as plain comma joined lines. Values are
// never quoted; commas inside them become spaces so every row has exactly
// len(CSVHeader) columns.
type CSVWriter struct {
	w *bufio.Writer
}

func NewCSVWriter(w io.Writer) (*CSVWriter, error) {
	c := &CSVWriter{w: bufio.NewWriter(w)}
	if err := c.write(CSVHeader); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *CSVWriter) Row(a model.Appointment) error {
	currency := a.Currency
	if currency == "" {
		currency = model.DefaultCurrency
	}
	row := []string{
		a.ID,
		string(a.Status),
		model.FormatISO(a.Start),
		model.FormatISO(a.End),
		a.CustomerName,
		a.CustomerEmail,
		a.CustomerPhone,
		a.ServiceID,
		a.StaffID,
		strconv.FormatInt(a.AmountCentsTotal, 10),
		strconv.FormatInt(a.AmountCentsDueNow, 10),
		currency,
	}
	for i, v := range row {
		row[i] = strings.ReplaceAll(v, ",", " ")
	}
	return c.write(row)
}

func (c *CSVWriter) write(fields []string) error {
	_, err := c.w.WriteString(strings.Join(fields, ",") + "\n")
	return err
}

// Flush pushes buffered rows to the underlying writer.
func (c *CSVWriter) Flush() error {
	return c.w.Flush()
}
