package model

import (
	"bytes"
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var jsonNumberRegexp = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)

// Code is a member-assigned identifier (EPF number, welfare number, age) that the
// backend sends either as a JSON number or as a string. The textual form is kept.
type Code string

func (c *Code) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*c = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = Code(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*c = Code(n.String())
	return nil
}

// MarshalJSON writes numeric codes back as JSON numbers and everything else
// (including zero-padded values such as "007") as strings.
func (c Code) MarshalJSON() ([]byte, error) {
	if jsonNumberRegexp.MatchString(string(c)) {
		return []byte(c), nil
	}
	return json.Marshal(string(c))
}

func (c Code) String() string {
	return string(c)
}

// Number reports the numeric value of the code. ok is false for empty or
// non-numeric codes.
func (c Code) Number() (float64, bool) {
	s := strings.TrimSpace(string(c))
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

type ContactNo struct {
	Number     string `json:"number,omitempty"`
	WhatsappNo string `json:"whatsappNo,omitempty"`
}

type Child struct {
	Name   string `json:"name"`
	Age    Code   `json:"age"`
	Gender string `json:"gender"`
}

// Member is the console's cached projection of a welfare member. The
// authoritative copy lives in the backend.
type Member struct {
	ID               string           `json:"_id"`
	EPF              Code             `json:"epf"`
	WelfareNo        Code             `json:"welfareNo"`
	Name             string           `json:"name"`
	Email            string           `json:"email,omitempty"`
	DateOfRegistered string           `json:"dateOfRegistered,omitempty"`
	DateOfJoined     string           `json:"dateOfJoined,omitempty"`
	DateOfBirth      string           `json:"dateOfBirth,omitempty"`
	Payroll          string           `json:"payroll,omitempty"`
	Division         string           `json:"division,omitempty"`
	Branch           string           `json:"branch,omitempty"`
	Unit             string           `json:"unit,omitempty"`
	Role             string           `json:"role,omitempty"`
	ContactNo        *ContactNo       `json:"contactNo,omitempty"`
	Children         []Child          `json:"children,omitempty"`
	SpouseName       string           `json:"spouseName,omitempty"`
	MotherName       string           `json:"motherName,omitempty"`
	FatherName       string           `json:"fatherName,omitempty"`
	MotherInLawName  string           `json:"motherInLawName,omitempty"`
	FatherInLawName  string           `json:"fatherInLawName,omitempty"`
	MemberFee        *decimal.Decimal `json:"memberFee,omitempty"`
}
