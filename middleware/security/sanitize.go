package security

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/url"
	"reflect"
	"regexp"
	"strings"

	"admin-gateway/middleware/apierror"

	"github.com/pkg/errors"
)

var dangerous = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`),
	regexp.MustCompile(`(?i)</?script\b[^>]*>`),
	regexp.MustCompile(`(?i)javascript\s*:`),
	regexp.MustCompile(`(?i)\bon[a-z]+\s*=`),
	regexp.MustCompile(`(?i)data\s*:\s*text/html`),
}

// SanitizeString remove blocos <script>, URIs javascript: e data:text/html e
// handlers inline (onclick=...). Repete até estabilizar, então aplicar duas
// vezes dá o mesmo resultado que uma.
func SanitizeString(s string) string {
	for {
		out := s
		for _, re := range dangerous {
			out = re.ReplaceAllString(out, "")
		}
		if out == s {
			return out
		}
		s = out
	}
}

// Sanitize devolve uma cópia de v com todas as strings saneadas, em
// profundidade. Mapas e slices são copiados; um contêiner que aparece de novo
// dentro de si mesmo (ciclo) vira nil.
func Sanitize(v any) any {
	return sanitizeValue(v, make(map[uintptr]struct{}))
}

func sanitizeValue(v any, path map[uintptr]struct{}) any {
	switch t := v.(type) {
	case string:
		return SanitizeString(t)
	case map[string]any:
		if t == nil {
			return t
		}
		id := reflect.ValueOf(t).Pointer()
		if _, seen := path[id]; seen {
			return nil
		}
		path[id] = struct{}{}
		defer delete(path, id)

		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = sanitizeValue(val, path)
		}
		return out
	case []any:
		if t == nil {
			return t
		}
		if len(t) > 0 {
			id := reflect.ValueOf(t).Pointer()
			if _, seen := path[id]; seen {
				return nil
			}
			path[id] = struct{}{}
			defer delete(path, id)
		}

		out := make([]any, len(t))
		for i, val := range t {
			out[i] = sanitizeValue(val, path)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(t))
		for k, val := range t {
			out[k] = SanitizeString(val)
		}
		return out
	case []string:
		return sanitizeStrings(t)
	case url.Values:
		return sanitizeValues(t)
	case map[string][]string:
		return map[string][]string(sanitizeValues(t))
	}
	return v
}

func sanitizeStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = SanitizeString(s)
	}
	return out
}

func sanitizeValues(in url.Values) url.Values {
	out := make(url.Values, len(in))
	for k, vs := range in {
		out[k] = sanitizeStrings(vs)
	}
	return out
}

// DefaultMaxBodyBytes limita o corpo JSON lido para saneamento.
const DefaultMaxBodyBytes int64 = 1 << 20

// SanitizeMiddleware é Sanitizer com DefaultMaxBodyBytes.
func SanitizeMiddleware(next http.Handler) http.Handler {
	return Sanitizer(DefaultMaxBodyBytes)(next)
}

// Sanitizer saneia a query string e corpos JSON. Corpo malformado segue
// intacto: o saneamento neutraliza conteúdo, não valida formato. Corpo acima
// de maxBody (<= 0 usa o padrão) responde 413 PAYLOAD_TOO_LARGE.
func Sanitizer(maxBody int64) func(next http.Handler) http.Handler {
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	return func(next http.Handler) http.Handler {
		return sanitizeHandler(next, maxBody)
	}
}

func sanitizeHandler(next http.Handler, maxBody int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RawQuery != "" {
			q := r.URL.Query()
			clean := sanitizeValues(q)
			if !reflect.DeepEqual(q, clean) {
				r.URL.RawQuery = clean.Encode()
			}
		}

		if r.Body != nil && r.Body != http.NoBody && isJSON(r.Header.Get("Content-Type")) {
			body, err := sanitizeJSONBody(http.MaxBytesReader(w, r.Body, maxBody))
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				apierror.Write(w, apierror.New(http.StatusRequestEntityTooLarge,
					apierror.CodePayloadTooLarge, "Request body is too large."))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			r.ContentLength = int64(len(body))
		}

		next.ServeHTTP(w, r)
	})
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

// sanitizeJSONBody devolve o corpo saneado ou, se o JSON não decodifica,
// os bytes originais. O erro é só o da leitura.
func sanitizeJSONBody(rc io.ReadCloser) ([]byte, error) {
	raw, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		return raw, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return raw, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return raw, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(Sanitize(payload)); err != nil {
		return raw, nil
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
