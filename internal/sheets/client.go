package sheets

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/api/option"
	sheetsv4 "google.golang.org/api/sheets/v4"
)

// Client wraps the Sheets API service. One client serves every spreadsheet
// the bot touches; per-spreadsheet gateways are created from it.
type Client struct {
	srv *sheetsv4.Service
}

func New(ctx context.Context, serviceAccountJSONPath string) (*Client, error) {
	if _, err := os.Stat(serviceAccountJSONPath); err != nil {
		return nil, fmt.Errorf("service account json: %w", err)
	}
	srv, err := sheetsv4.NewService(ctx,
		option.WithCredentialsFile(serviceAccountJSONPath),
		option.WithScopes(sheetsv4.SpreadsheetsScope),
	)
	if err != nil {
		return nil, err
	}
	return &Client{srv: srv}, nil
}

// Spreadsheet returns a gateway bound to one spreadsheet id.
func (c *Client) Spreadsheet(id string) *SpreadsheetGateway {
	return &SpreadsheetGateway{srv: c.srv, spreadsheetID: id}
}
