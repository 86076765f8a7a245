package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/rs/zerolog"

	"authhub/api/internal/events"
	"authhub/api/internal/fileparse"
	"authhub/api/internal/ids"
	"authhub/api/internal/models"
	"authhub/api/internal/security"
)

// ImportReport lists created emails and per-row failures keyed by "<sheet>:<row>".
type ImportReport struct {
	Created []string          `json:"created"`
	Failed  map[string]string `json:"failed"`
}

type importRow struct {
	label  string
	record fileparse.Record
}

// ImportService bulk-creates accounts from xlsx or csv sheets with the columns
// email, first_name, last_name and an optional password.
type ImportService struct {
	accounts *AccountService
	log      zerolog.Logger
}

func NewImportService(accounts *AccountService, log zerolog.Logger) *ImportService {
	return &ImportService{accounts: accounts, log: log}
}

func (s *ImportService) Import(ctx context.Context, actor models.Account, filename string, r io.Reader) (ImportReport, error) {
	if !actor.IsInternalAdmin() {
		return ImportReport{}, ErrForbidden
	}

	rows, err := readRows(filename, r)
	if err != nil {
		return ImportReport{}, err
	}

	report := ImportReport{Created: []string{}, Failed: map[string]string{}}
	for _, row := range rows {
		account, err := s.importRow(ctx, row.record)
		if err != nil {
			var ferr FieldErrors
			if !errors.As(err, &ferr) {
				return report, fmt.Errorf("import %s: %w", row.label, err)
			}
			report.Failed[row.label] = ferr.Error()
			continue
		}

		report.Created = append(report.Created, account.Email)
		s.accounts.publish(ctx, events.UserRegistered, account, map[string]string{"source": "import", "created_by": actor.ID})
	}

	s.log.Info().
		Str("actor_id", actor.ID).
		Str("file", filename).
		Int("created", len(report.Created)).
		Int("failed", len(report.Failed)).
		Msg("account import finished")
	return report, nil
}

func (s *ImportService) importRow(ctx context.Context, record fileparse.Record) (models.Account, error) {
	password := record["password"]
	if password == "" {
		generated, _, err := security.GenerateOpaqueToken(18)
		if err != nil {
			return models.Account{}, err
		}
		password = generated
	}

	input := CreateAccountInput{
		Email:     normalizeEmail(record["email"]),
		FirstName: record["first_name"],
		LastName:  record["last_name"],
		Password:  password,
	}
	if err := asFieldErrors(input.Validate()); err != nil {
		return models.Account{}, err
	}

	account := models.Account{
		ID:        ids.New(),
		Email:     input.Email,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		IsActive:  true,
	}
	if err := s.accounts.create(ctx, &account, input.Password, nil); err != nil {
		return models.Account{}, err
	}
	return account, nil
}

// readRows loads the first sheet of a workbook or a whole csv file. Labels carry the
// sheet row or file line an admin would look up.
func readRows(filename string, r io.Reader) ([]importRow, error) {
	switch strings.ToLower(path.Ext(filename)) {
	case ".xlsx":
		wb, err := fileparse.ReadWorkbook(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedFile, err)
		}
		defer wb.Close()

		sheets := wb.SheetNames()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%w: workbook has no sheets", ErrUnsupportedFile)
		}
		parsed, err := wb.Rows(sheets[0], fileparse.SheetOptions{})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedFile, err)
		}
		return labelRows(sheets[0], parsed), nil
	case ".csv":
		parsed, err := fileparse.NewCSVParser().ParseRows(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedFile, err)
		}
		return labelRows("csv", parsed), nil
	}
	return nil, fmt.Errorf("%w: expected .xlsx or .csv, got %q", ErrUnsupportedFile, filename)
}

func labelRows(prefix string, parsed []fileparse.Row) []importRow {
	rows := make([]importRow, 0, len(parsed))
	for _, row := range parsed {
		rows = append(rows, importRow{label: fmt.Sprintf("%s:%d", prefix, row.Number), record: normalizeKeys(row.Record)})
	}
	return rows
}

func normalizeKeys(record fileparse.Record) fileparse.Record {
	out := make(fileparse.Record, len(record))
	for key, value := range record {
		key = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(key)), " ", "_")
		out[key] = strings.TrimSpace(value)
	}
	return out
}
