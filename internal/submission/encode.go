package submission

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strconv"

	"github.com/01moynul/bookshelf-admin/internal/variation"
)

// Payload is a serialized book form, ready to be sent.
type Payload struct {
	BookID      *int64
	ContentType string
	Body        []byte
	Variations  int
}

type formField struct{ name, value string }

// Encode serializes the form as multipart/form-data using the backend's field names:
// variations[i][attributes] (JSON object), [price], [stock_quantity], [sku], [image], [id].
func Encode(f *variation.ProductForm) (*Payload, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := []formField{
		{"title", f.Title},
		{"sku", f.ParentSKU()},
		{"product_type", string(f.Type())},
	}
	if f.Price != nil {
		fields = append(fields, formField{"price", f.Price.String()})
	}
	if f.Type() == variation.Simple && f.StockQuantity != nil {
		fields = append(fields, formField{"stock_quantity", strconv.Itoa(*f.StockQuantity)})
	}
	if f.BookID != nil {
		fields = append(fields, formField{"_method", "PUT"})
	}
	for _, fld := range fields {
		if err := w.WriteField(fld.name, fld.value); err != nil {
			return nil, err
		}
	}

	n := 0
	if f.Type() == variation.Variable {
		for i, v := range f.Variations().Variations() {
			if err := writeVariation(w, i, v); err != nil {
				return nil, fmt.Errorf("variation %d: %w", i, err)
			}
			n++
		}
	}

	if err := w.Close(); err != nil {
		return nil, err
	}
	return &Payload{
		BookID:      f.BookID,
		ContentType: w.FormDataContentType(),
		Body:        buf.Bytes(),
		Variations:  n,
	}, nil
}

func writeVariation(w *multipart.Writer, i int, v variation.Variation) error {
	key := func(field string) string { return fmt.Sprintf("variations[%d][%s]", i, field) }

	attrs, err := json.Marshal(v.Attributes)
	if err != nil {
		return err
	}
	price := ""
	if v.Price != nil {
		price = v.Price.String()
	}
	stock := ""
	if v.StockQuantity != nil {
		stock = strconv.Itoa(*v.StockQuantity)
	}

	if err := w.WriteField(key("attributes"), string(attrs)); err != nil {
		return err
	}
	if err := w.WriteField(key("price"), price); err != nil {
		return err
	}
	if err := w.WriteField(key("stock_quantity"), stock); err != nil {
		return err
	}
	if err := w.WriteField(key("sku"), v.SKU); err != nil {
		return err
	}
	if v.ID != nil {
		if err := w.WriteField(key("id"), strconv.FormatInt(*v.ID, 10)); err != nil {
			return err
		}
	}
	if v.Image != nil && len(v.Image.Data) > 0 {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			key("image"), escapeQuotes(v.Image.Filename)))
		ct := v.Image.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return err
		}
		if _, err := part.Write(v.Image.Data); err != nil {
			return err
		}
	}
	return nil
}

func escapeQuotes(s string) string {
	var b bytes.Buffer
	for _, r := range s {
		if r == '"' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
