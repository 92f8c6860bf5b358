// Package store keeps the reference data (companies, currencies, policies,
// defaults and sequence counters) in a single JSON file.
//
// The file is read fully on Open and rewritten fully on Save. Save writes
// back the document as it was loaded with only the sequence counters
// replaced, so keys the models do not know about survive. Writes go to a
// temporary file in the same directory which is then renamed over the
// original, so a failed write never leaves a truncated file behind.
package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"

	"invoicer/internal/invoice"
	"invoicer/internal/logger"
	"invoicer/pkg/models"
)

// Store is the in-memory reference store.
type Store struct {
	path string
	data *models.ReferenceData
	// doc is the file as loaded, nil for stores built with New.
	doc map[string]interface{}
	log zerolog.Logger
}

// Open loads the reference store from path.
func Open(path string) (*Store, error) {
	const op = "store.Open"

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read %s: %w", op, path, err)
	}

	data, doc, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse %s: %w", op, path, err)
	}

	s := New(path, data)
	s.doc = doc
	s.log.Debug().
		Str("path", path).
		Int("companies", len(data.Companies)).
		Int("currencies", len(data.Currencies)).
		Int("policies", len(data.Policies)).
		Msg("Reference store loaded")
	return s, nil
}

// New wraps already loaded data. Save writes to path.
func New(path string, data *models.ReferenceData) *Store {
	if data.Companies == nil {
		data.Companies = make(map[string]*models.Company)
	}
	if data.Currencies == nil {
		data.Currencies = make(map[string]*models.Currency)
	}
	if data.Policies == nil {
		data.Policies = make(map[string]string)
	}
	return &Store{
		path: path,
		data: data,
		log:  logger.WithComponent("store"),
	}
}

func decode(raw []byte) (*models.ReferenceData, map[string]interface{}, error) {
	var data models.ReferenceData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, nil, err
	}
	doc, err := generic(raw)
	if err != nil {
		return nil, nil, err
	}
	return &data, doc, nil
}

// generic decodes a JSON object keeping numbers as written.
func generic(raw []byte) (map[string]interface{}, error) {
	var doc map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("document is not a JSON object")
	}
	return doc, nil
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Data exposes the loaded document. Callers must not keep references across
// Save calls if they mutate it.
func (s *Store) Data() *models.ReferenceData {
	return s.data
}

// Defaults returns the defaults block.
func (s *Store) Defaults() models.Defaults {
	return s.data.Defaults
}

// Company looks up a company by id.
func (s *Store) Company(id string) (*models.Company, error) {
	c, ok := s.data.Companies[id]
	if !ok || c == nil {
		return nil, invoice.LookupError("company", id)
	}
	return c, nil
}

// Currency looks up a currency by id.
func (s *Store) Currency(id string) (*models.Currency, error) {
	c, ok := s.data.Currencies[id]
	if !ok || c == nil {
		return nil, invoice.LookupError("currency", id)
	}
	return c, nil
}

// Policy returns the text of a policy.
func (s *Store) Policy(id string) (string, error) {
	p, ok := s.data.Policies[id]
	if !ok {
		return "", invoice.LookupError("policy", id)
	}
	return p, nil
}

// LastSequence returns the last used number of a company for a sequence
// key. A missing entry counts as 0.
func (s *Store) LastSequence(companyID, key string) (int, error) {
	c, err := s.Company(companyID)
	if err != nil {
		return 0, err
	}
	return c.LastSequences[key], nil
}

// SetLastSequence updates the in-memory counter. Nothing is written until Save.
func (s *Store) SetLastSequence(companyID, key string, value int) error {
	c, err := s.Company(companyID)
	if err != nil {
		return err
	}
	if c.LastSequences == nil {
		c.LastSequences = make(map[string]int)
	}
	c.LastSequences[key] = value
	return nil
}

// Save rewrites the whole file atomically.
func (s *Store) Save() error {
	const op = "store.Save"

	doc, err := s.document()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	out, err := Encode(doc)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := renameio.WriteFile(s.path, out, 0o644, renameio.WithExistingPermissions()); err != nil {
		return fmt.Errorf("%s: failed to replace %s: %w", op, s.path, err)
	}

	s.log.Debug().Str("path", s.path).Int("bytes", len(out)).Msg("Reference store saved")
	return nil
}

// document returns the loaded document with the current sequence counters
// patched in. A store built with New is rendered from its models.
func (s *Store) document() (map[string]interface{}, error) {
	if s.doc == nil {
		raw, err := json.Marshal(s.data)
		if err != nil {
			return nil, err
		}
		return generic(raw)
	}

	companies, ok := s.doc["companies"].(map[string]interface{})
	if !ok {
		companies = make(map[string]interface{})
		s.doc["companies"] = companies
	}
	for id, c := range s.data.Companies {
		if c == nil || len(c.LastSequences) == 0 {
			continue
		}
		entry, ok := companies[id].(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("company %s is not an object in the store file", id)
		}
		seq := make(map[string]interface{}, len(c.LastSequences))
		for k, v := range c.LastSequences {
			seq[k] = v
		}
		entry["last_sequences"] = seq
	}
	return s.doc, nil
}

// Encode renders a store document with sorted keys and 4-space indent.
func Encode(doc map[string]interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
