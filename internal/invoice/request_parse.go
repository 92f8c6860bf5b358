package invoice

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"invoicer/pkg/models"
)

// Format is the encoding of a billing request file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from the file extension. Anything that is
// not .yaml or .yml is treated as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

type rawRequest struct {
	DocumentType    string           `json:"document_type"`
	Template        string           `json:"template"`
	DebtorID        *string          `json:"debtor_id"`
	DebtorDetails   *models.Company  `json:"debtor_details"`
	CreditorID      string           `json:"creditor_id"`
	CurrencyID      string           `json:"currency_id"`
	PolicyIDs       []string         `json:"policy_ids"`
	InvoiceDate     string           `json:"invoice_date"`
	DeliveryDate    *string          `json:"delivery_date"`
	DueDate         string           `json:"due_date"`
	PaymentDate     string           `json:"payment_date"`
	Period          string           `json:"period"`
	Items           *orderedItems    `json:"items"`
	ConsultancyDays *decimal.Decimal `json:"consultancy_days"`
	DayRate         *decimal.Decimal `json:"day_rate"`
	ItemDescription string           `json:"item_description"`
}

type rawItem struct {
	Description *string          `json:"description"`
	Qty         *decimal.Decimal `json:"qty"`
	Price       *decimal.Decimal `json:"price"`
	UnitAmt     *decimal.Decimal `json:"unit_amt"`
	VATPct      *decimal.Decimal `json:"vat_pct"`

	BaseAmt  json.RawMessage `json:"base_amt"`
	VATAmt   json.RawMessage `json:"vat_amt"`
	TotalAmt json.RawMessage `json:"total_amt"`
}

// orderedItems keeps the item map in file order; encoding/json maps do not.
type orderedItems struct {
	keys      []string
	items     []rawItem
	duplicate string
}

func (o *orderedItems) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("items must be an object keyed by line number")
	}

	seen := make(map[string]bool)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected item key %v", tok)
		}
		var it rawItem
		if err := dec.Decode(&it); err != nil {
			return fmt.Errorf("item %q: %w", key, err)
		}
		if seen[key] && o.duplicate == "" {
			o.duplicate = key
		}
		seen[key] = true
		o.keys = append(o.keys, key)
		o.items = append(o.items, it)
	}

	_, err = dec.Token()
	return err
}

// ParseRequest decodes and validates a billing request.
func ParseRequest(data []byte, format Format, ov Overrides) (*Request, error) {
	const op = "invoice.ParseRequest"

	if format == FormatYAML {
		converted, err := yamlToJSON(data)
		if err != nil {
			return nil, invalidField("request", "%s: %v", op, err)
		}
		data = converted
	}

	var raw rawRequest
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, invalidField("request", "%s: %v", op, err)
	}
	return raw.validate(ov)
}

// LoadRequest reads a request file from disk.
func LoadRequest(path string, ov Overrides) (*Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read request file: %w", err)
	}
	return ParseRequest(data, FormatFromPath(path), ov)
}

// yamlToJSON re-encodes a YAML document as JSON while keeping mapping order,
// so YAML requests go through exactly the same decoding as JSON ones.
func yamlToJSON(data []byte) ([]byte, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return []byte("{}"), nil
	}
	var buf bytes.Buffer
	if err := writeNode(&buf, doc.Content[0]); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeNode(buf *bytes.Buffer, n *yaml.Node) error {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			buf.WriteString("null")
			return nil
		}
		return writeNode(buf, n.Content[0])
	case yaml.AliasNode:
		return writeNode(buf, n.Alias)
	case yaml.MappingNode:
		buf.WriteByte('{')
		for i := 0; i+1 < len(n.Content); i += 2 {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(n.Content[i].Value)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := writeNode(buf, n.Content[i+1]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case yaml.SequenceNode:
		buf.WriteByte('[')
		for i, child := range n.Content {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeNode(buf, child); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case yaml.ScalarNode:
		return writeScalar(buf, n)
	default:
		return fmt.Errorf("line %d: unsupported YAML node", n.Line)
	}
	return nil
}

func writeScalar(buf *bytes.Buffer, n *yaml.Node) error {
	switch n.ShortTag() {
	case "!!null":
		buf.WriteString("null")
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return err
		}
		buf.WriteString(strconv.FormatBool(b))
	case "!!int", "!!float":
		// Keep the literal so decimals like 429.55 never pass through float64.
		if json.Valid([]byte(n.Value)) {
			buf.WriteString(n.Value)
			return nil
		}
		var f float64
		if err := n.Decode(&f); err != nil {
			return err
		}
		buf.WriteString(strconv.FormatFloat(f, 'f', -1, 64))
	default:
		s, err := json.Marshal(n.Value)
		if err != nil {
			return err
		}
		buf.Write(s)
	}
	return nil
}
