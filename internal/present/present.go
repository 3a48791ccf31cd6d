// Package present turns members into the strings and row styles the member
// table and its dialogs display.
package present

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/welfare/internal/model"
)

const (
	// Placeholder is shown for a date that cannot be parsed.
	Placeholder = "-"
	// Missing is shown in the detail dialog for an absent optional value.
	Missing = "N/A"

	HighlightID = "member-highlight"

	classHighlight = "bg-yellow-200"
	classEven      = "bg-yellow-50"
	classOdd       = "bg-red-50"
)

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// FormatDate renders a backend date as M/D/YYYY without zero padding, or "-"
// when it cannot be parsed. Calendar fields are taken as written, so a date
// never shifts by a day with the server's time zone.
func FormatDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return Placeholder
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return fmt.Sprintf("%d/%d/%d", int(t.Month()), t.Day(), t.Year())
		}
	}
	return Placeholder
}

// DateInput renders a backend date in the yyyy-mm-dd form a date input
// expects, or "" when it cannot be parsed.
func DateInput(s string) string {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}

// Row is one rendered line of the member table.
type Row struct {
	Member     model.Member
	Index      int
	Highlight  bool
	Class      string
	Registered string
	Joined     string
}

// DOMID is the element id of the row. Only the highlighted row has one, so
// the page script can scroll it into view.
func (r Row) DOMID() string {
	if r.Highlight {
		return HighlightID
	}
	return ""
}

// Table builds the rows for a filtered view. The first row is highlighted;
// the rest alternate between two stripe classes by position.
func Table(view []model.Member) []Row {
	rows := make([]Row, len(view))
	for i, m := range view {
		r := Row{
			Member:     m,
			Index:      i,
			Highlight:  i == 0,
			Registered: FormatDate(m.DateOfRegistered),
			Joined:     FormatDate(m.DateOfJoined),
		}
		switch {
		case r.Highlight:
			r.Class = classHighlight
		case i%2 == 0:
			r.Class = classEven
		default:
			r.Class = classOdd
		}
		rows[i] = r
	}
	return rows
}

// Field is one labelled value of the detail dialog.
type Field struct {
	Label string
	Value string
}

// Details lists the read-only fields of a member in display order. Absent
// values read "N/A"; dates that do not parse read "-".
func Details(m model.Member) []Field {
	var contact model.ContactNo
	if m.ContactNo != nil {
		contact = *m.ContactNo
	}
	fee := Missing
	if m.MemberFee != nil && !m.MemberFee.IsZero() {
		fee = "$" + m.MemberFee.String()
	}
	return []Field{
		{"Email", orMissing(m.Email)},
		{"EPF No", orMissing(m.EPF.String())},
		{"Date of Birth", detailDate(m.DateOfBirth)},
		{"Date of Joined", detailDate(m.DateOfJoined)},
		{"Date of Registered", detailDate(m.DateOfRegistered)},
		{"Welfare No", orMissing(m.WelfareNo.String())},
		{"Role", orMissing(m.Role)},
		{"Payroll", orMissing(m.Payroll)},
		{"Division", orMissing(m.Division)},
		{"Branch", orMissing(m.Branch)},
		{"Unit", orMissing(m.Unit)},
		{"Contact Number", orMissing(contact.Number)},
		{"WhatsApp Number", orMissing(contact.WhatsappNo)},
		{"Spouse Name", orMissing(m.SpouseName)},
		{"Mother's Name", orMissing(m.MotherName)},
		{"Father's Name", orMissing(m.FatherName)},
		{"Mother-in-Law's Name", orMissing(m.MotherInLawName)},
		{"Father-in-Law's Name", orMissing(m.FatherInLawName)},
		{"Member Fee", fee},
	}
}

// Children renders each child as "name, Age: n, Gender: g".
func Children(m model.Member) []string {
	out := make([]string, 0, len(m.Children))
	for _, c := range m.Children {
		out = append(out, fmt.Sprintf("%s, Age: %s, Gender: %s", c.Name, c.Age, c.Gender))
	}
	return out
}

func orMissing(s string) string {
	if strings.TrimSpace(s) == "" {
		return Missing
	}
	return s
}

func detailDate(s string) string {
	if strings.TrimSpace(s) == "" {
		return Missing
	}
	return FormatDate(s)
}

// ParseScroll reads a saved vertical scroll offset. Anything that is not a
// non-negative number yields 0.
func ParseScroll(s string) int {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || f < 0 || f > 1e9 {
		return 0
	}
	return int(f)
}
