package xactions

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"strings"
)

const formContentType = "application/x-www-form-urlencoded"

// formField is one ordered multipart field.
type formField struct {
	Name  string
	Value string
}

// encodeForm returns an urlencoded body and its content type.
func encodeForm(fields url.Values) (io.Reader, string) {
	return strings.NewReader(fields.Encode()), formContentType
}

// encodeMultipart writes fields in order, followed by one binary part.
func encodeMultipart(fields []formField, partName, fileName string, data []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range fields {
		if err := w.WriteField(f.Name, f.Value); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", f.Name, err)
		}
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, partName, fileName))
	h.Set("Content-Type", "application/octet-stream")
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create part %s: %w", partName, err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", fmt.Errorf("write part %s: %w", partName, err)
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// addGraphQLParams builds the full URL with variables, features, and optional fieldToggles.
func addGraphQLParams(rawURL string, variables, features map[string]any, fieldToggles ...map[string]any) string {
	v, _ := json.Marshal(variables)
	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	result := rawURL + sep + "variables=" + jsonEscape(v)
	if features != nil {
		f, _ := json.Marshal(features)
		result += "&features=" + jsonEscape(f)
	}
	if len(fieldToggles) > 0 && fieldToggles[0] != nil {
		ft, _ := json.Marshal(fieldToggles[0])
		result += "&fieldToggles=" + jsonEscape(ft)
	}
	return result
}

// jsonEscape percent-encodes a JSON query value the way the web app does:
// spaces become %20, never '+'.
func jsonEscape(b []byte) string {
	return strings.ReplaceAll(url.QueryEscape(string(b)), "+", "%20")
}

// graphQLBody builds a POST mutation body.
func graphQLBody(ep Endpoint, variables map[string]any) ([]byte, error) {
	payload := map[string]any{
		"variables": variables,
		"queryId":   ep.ID,
	}
	if ep.Features != nil {
		payload["features"] = ep.Features
	}
	return json.Marshal(payload)
}

// decodeJSON unmarshals body into v. Syntax and type errors become a
// MalformedResponseError rooted at path.
func decodeJSON(body []byte, v any, path string) error {
	if err := json.Unmarshal(body, v); err != nil {
		return &MalformedResponseError{Path: path, Err: err}
	}
	return nil
}

// requireField returns a MalformedResponseError for path when value is empty.
func requireField(value, path string) error {
	if value == "" {
		return &MalformedResponseError{Path: path}
	}
	return nil
}

// hasResponseData returns true if the JSON body contains a non-null "data" field.
func hasResponseData(body []byte) bool {
	var probe struct {
		Data json.RawMessage `json:"data"`
	}
	if json.Unmarshal(body, &probe) != nil {
		return false
	}
	return len(probe.Data) > 0 && string(probe.Data) != "null"
}

func truncateBytes(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
