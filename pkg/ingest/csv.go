package ingest

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/coboxhq/abra/pkg/identity"
)

// Format identifies a supported contact export format.
type Format int

const (
	// FormatUnknown means the header matched no supported export.
	FormatUnknown Format = iota
	// FormatConnections is the LinkedIn Connections.csv export.
	FormatConnections
	// FormatContacts is the Google/LinkedIn Contacts.csv export.
	FormatContacts
)

const connectionsHeader = "First Name,Last Name,URL,Email Address"
const contactsHeader = "Source,FirstName,LastName"

// DetectFormat sniffs the leading bytes of a CSV export.
func DetectFormat(sample string) Format {
	if strings.Contains(sample, connectionsHeader) {
		return FormatConnections
	}
	if strings.Contains(sample, contactsHeader) {
		return FormatContacts
	}
	return FormatUnknown
}

// ContactRow is one parsed row of a contact export, before identity
// normalization. ConnectedOn is only present in Connections exports.
type ContactRow struct {
	FirstName   string
	LastName    string
	Email       string
	Phone       string
	Company     string
	Title       string
	ProfileURL  string
	Source      string
	ConnectedOn string
}

// Contact converts the row into an identity record.
func (r ContactRow) Contact() identity.Contact {
	name := identity.FullName(r.FirstName, r.LastName)
	pet := identity.PetName(r.FirstName, r.LastName)
	if name == "" && r.Email != "" {
		name, _, _ = strings.Cut(r.Email, "@")
	}
	if pet == "" && r.Email != "" {
		pet = identity.SlugFromEmail(r.Email)
	}
	return identity.Contact{
		Name:       name,
		PetName:    pet,
		Email:      r.Email,
		Phone:      r.Phone,
		Company:    r.Company,
		Title:      r.Title,
		ProfileURL: r.ProfileURL,
		Source:     r.Source,
	}
}

// ScrubbedLine renders the row as a PII-free content line:
// "Name — Title — at Company — (connected DATE)", omitting absent parts.
// Emails and phones never appear here; they belong in the CRM.
func (r ContactRow) ScrubbedLine() string {
	name := identity.FullName(r.FirstName, r.LastName)
	parts := []string{name}
	if r.Title != "" {
		parts = append(parts, r.Title)
	}
	if r.Company != "" {
		parts = append(parts, "at "+r.Company)
	}
	if r.ConnectedOn != "" {
		parts = append(parts, "(connected "+r.ConnectedOn+")")
	}
	return strings.Join(parts, " — ")
}

// ParseConnections reads a LinkedIn Connections.csv export. The file opens
// with a free-text notes preamble; rows start after the header line.
func ParseConnections(r io.Reader) ([]ContactRow, error) {
	br := bufio.NewReader(r)

	// Skip the preamble.
	found := false
	for {
		line, err := br.ReadString('\n')
		if strings.HasPrefix(line, "First Name,") {
			found = true
			break
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read connections header: %w", err)
		}
	}
	if !found {
		return nil, fmt.Errorf("no header line found in Connections export")
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1

	var rows []ContactRow
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse connections row: %w", err)
		}
		row := ContactRow{
			FirstName:   field(rec, 0),
			LastName:    field(rec, 1),
			ProfileURL:  field(rec, 2),
			Email:       field(rec, 3),
			Company:     field(rec, 4),
			Title:       field(rec, 5),
			ConnectedOn: field(rec, 6),
			Source:      identity.SourceLinkedIn,
		}
		if row.FirstName == "" && row.LastName == "" {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ParseContacts reads a Google/LinkedIn Contacts.csv export. Columns are
// named in the first row; email and phone cells hold comma-separated lists
// of which only the first entry is kept.
func ParseContacts(r io.Reader) ([]ContactRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read contacts header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}

	get := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok {
			return ""
		}
		return field(rec, i)
	}

	var rows []ContactRow
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse contacts row: %w", err)
		}

		row := ContactRow{
			FirstName: get(rec, "FirstName"),
			LastName:  get(rec, "LastName"),
			Email:     firstListed(get(rec, "Emails")),
			Phone:     firstListed(get(rec, "PhoneNumbers")),
			Title:     get(rec, "Title"),
		}

		company := get(rec, "Companies")
		if company == "null" {
			company = ""
		}
		row.Company = company

		if profiles := get(rec, "Profiles"); strings.Contains(profiles, "linkedin.com") {
			for _, part := range strings.Split(profiles, ",") {
				part = strings.TrimSpace(part)
				if strings.Contains(part, "linkedin.com") {
					row.ProfileURL = part
					break
				}
			}
		}

		source := strings.ToLower(strings.TrimSpace(get(rec, "Source")))
		if source == "" {
			source = "unknown"
		}
		row.Source = source

		// Rows carrying neither a name nor an email identify nothing.
		if row.FirstName == "" && row.LastName == "" && row.Email == "" {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func field(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func firstListed(cell string) string {
	for _, part := range strings.Split(cell, ",") {
		if p := strings.TrimSpace(part); p != "" {
			return p
		}
	}
	return ""
}
