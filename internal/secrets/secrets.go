// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads optional credentials from a directory of
// plain-text files. The filename is the key and the trimmed contents are
// the value.
//
// Recognized keys: arxiv-contact-email.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// ContactEmail is the key holding the address advertised to the feed
// operator in the User-Agent header.
const ContactEmail = "arxiv-contact-email"

// Secrets maps key names to values.
type Secrets map[string]string

// Load reads every regular, non-hidden file in dir. A missing directory
// yields an empty set. Unreadable files are logged and skipped.
func Load(dir string, log zerolog.Logger) (Secrets, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Secrets{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	s := make(Secrets)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn().Err(err).Str("secret", name).Msg("could not read secret")
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			s[name] = value
		}
	}
	return s, nil
}

// UserAgent appends the contact address, when one is configured, to base
// in the "(mailto:...)" form feed operators ask for.
func (s Secrets) UserAgent(base string) string {
	email := s[ContactEmail]
	if email == "" {
		return base
	}
	if base == "" {
		return "(mailto:" + email + ")"
	}
	return base + " (mailto:" + email + ")"
}
