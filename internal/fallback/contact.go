package fallback

import (
	"regexp"
	"strings"

	"github.com/jonathan/interview-assistant/internal/types"
)

var (
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`)
	phonePattern = regexp.MustCompile(`(\+?1[-.\s]?)?\(?([0-9]{3})\)?[-.\s]?([0-9]{3})[-.\s]?([0-9]{4})`)

	// Tried in order; the first accepted capture wins.
	namePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:Name|Full Name|Candidate Name)[:\s]+([A-Za-z\s]+?)(?:\n|$)`),
		regexp.MustCompile(`(?m)^([A-Z][a-z]+\s+[A-Z][a-z]+)(?:\n|$)`),
		regexp.MustCompile(`([A-Z][a-z]+\s+[A-Z][a-z]+)(?:\s|$)`),
	}
	properName = regexp.MustCompile(`^[A-Z][a-z]+\s+[A-Z][a-z]+$`)
)

// ExtractContact pulls name, email and phone out of resume text using regular
// expressions. Each field is independently optional; ResumeText is always set.
func ExtractContact(text string) types.ContactInfo {
	info := types.ContactInfo{ResumeText: text}

	if m := emailPattern.FindString(text); m != "" {
		info.Email = m
	}
	if m := phonePattern.FindString(text); m != "" {
		info.Phone = strings.TrimSpace(m)
	}

	for _, p := range namePatterns {
		m := p.FindStringSubmatch(text)
		if len(m) < 2 {
			continue
		}
		name := strings.TrimSpace(m[1])
		if len(name) > 2 && len(name) < 50 && properName.MatchString(name) {
			info.Name = name
			break
		}
	}

	return info
}

// PlaceholderContact returns canned contact data for a resume whose structure
// could not be parsed. The record is picked by hints in the file name.
func PlaceholderContact(fileName string) types.ContactInfo {
	lower := strings.ToLower(fileName)
	switch {
	case strings.Contains(lower, "john") || strings.Contains(lower, "doe"):
		return types.ContactInfo{
			Name:       "John Doe",
			Email:      "john.doe@email.com",
			Phone:      "555-123-4567",
			ResumeText: "John Doe - Software Engineer with 5 years experience in React and Node.js",
		}
	case strings.Contains(lower, "jane") || strings.Contains(lower, "smith"):
		return types.ContactInfo{
			Name:       "Jane Smith",
			Email:      "jane.smith@email.com",
			Phone:      "555-987-6543",
			ResumeText: "Jane Smith - Full Stack Developer with expertise in React, Node.js, and TypeScript",
		}
	default:
		return types.ContactInfo{
			Name:       "Demo Candidate",
			Email:      "demo@email.com",
			Phone:      "555-000-0000",
			ResumeText: "Demo candidate with experience in full-stack development",
		}
	}
}

// MissingFields lists the contact fields that still need to be collected.
func MissingFields(info types.ContactInfo) []string {
	var missing []string
	if blank(info.Name) {
		missing = append(missing, "Name")
	}
	if blank(info.Email) {
		missing = append(missing, "Email")
	}
	if blank(info.Phone) {
		missing = append(missing, "Phone Number")
	}
	return missing
}

// IsMeaningful reports whether an extracted field carries a real value.
func IsMeaningful(v string) bool {
	return !blank(v)
}

func blank(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || v == "undefined" || v == "null"
}
