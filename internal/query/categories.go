// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package query

import (
	"sort"
	"strings"
)

// catalog maps arXiv computer science codes to display names.
var catalog = map[string]string{
	"cs.AI": "Artificial Intelligence",
	"cs.AR": "Hardware Architecture",
	"cs.CC": "Computational Complexity",
	"cs.CE": "Computational Engineering",
	"cs.CG": "Computational Geometry",
	"cs.CL": "Computation & Language",
	"cs.CR": "Cryptography & Security",
	"cs.CV": "Computer Vision",
	"cs.CY": "Computers & Society",
	"cs.DB": "Databases",
	"cs.DC": "Distributed Computing",
	"cs.DL": "Digital Libraries",
	"cs.DM": "Discrete Mathematics",
	"cs.DS": "Data Structures & Algorithms",
	"cs.ET": "Emerging Technologies",
	"cs.FL": "Formal Languages",
	"cs.GL": "General Literature",
	"cs.GR": "Graphics",
	"cs.GT": "Game Theory",
	"cs.HC": "Human-Computer Interaction",
	"cs.IR": "Information Retrieval",
	"cs.IT": "Information Theory",
	"cs.LG": "Machine Learning",
	"cs.LO": "Logic in Computer Science",
	"cs.MA": "Multiagent Systems",
	"cs.MM": "Multimedia",
	"cs.MS": "Mathematical Software",
	"cs.NA": "Numerical Analysis",
	"cs.NE": "Neural & Evolutionary Computing",
	"cs.NI": "Networking & Internet Architecture",
	"cs.OH": "Other Computer Science",
	"cs.OS": "Operating Systems",
	"cs.PF": "Performance",
	"cs.PL": "Programming Languages",
	"cs.RO": "Robotics",
	"cs.SC": "Symbolic Computation",
	"cs.SD": "Sound",
	"cs.SE": "Software Engineering",
	"cs.SI": "Social & Information Networks",
	"cs.SY": "Systems & Control",
}

// tags maps short user-facing tags to taxonomy codes.
var tags = map[string]string{
	"ai":          "cs.AI",
	"ml":          "cs.LG",
	"cv":          "cs.CV",
	"nlp":         "cs.CL",
	"robotics":    "cs.RO",
	"security":    "cs.CR",
	"systems":     "cs.OS",
	"graphics":    "cs.GR",
	"hci":         "cs.HC",
	"databases":   "cs.DB",
	"networking":  "cs.NI",
	"programming": "cs.PL",
	"algorithms":  "cs.DS",
	"distributed": "cs.DC",
	"software":    "cs.SE",
}

// Category is one catalog entry.
type Category struct {
	Code string
	Name string
}

// Catalog returns every known category sorted by code.
func Catalog() []Category {
	out := make([]Category, 0, len(catalog))
	for code, name := range catalog {
		out = append(out, Category{Code: code, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// CategoryName returns the display name for code, or code itself when unknown.
func CategoryName(code string) string {
	if name, ok := catalog[code]; ok {
		return name
	}
	return code
}

// ResolveTag maps a friendly tag such as "ml" to its code. Anything that
// is not a known tag is returned unchanged.
func ResolveTag(tag string) string {
	if code, ok := tags[strings.ToLower(tag)]; ok {
		return code
	}
	return tag
}

// Tag is a friendly alias for a category code.
type Tag struct {
	Tag  string
	Code string
}

// Tags returns every friendly tag sorted by tag.
func Tags() []Tag {
	out := make([]Tag, 0, len(tags))
	for tag, code := range tags {
		out = append(out, Tag{Tag: tag, Code: code})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tag < out[j].Tag })
	return out
}
