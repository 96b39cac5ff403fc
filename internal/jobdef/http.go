package jobdef

import (
	"encoding/json"
	"fmt"
	"maps"
	"net/url"
	"strings"

	"github.com/aatumaykin/jobqueue/internal/errs"
)

// Method - метод HTTP запроса
type Method string

const (
	MethodGet  Method = "GET"
	MethodPost Method = "POST"
	MethodPut  Method = "PUT"
)

// Valid сообщает, поддерживается ли метод
func (m Method) Valid() bool {
	return m == MethodGet || m == MethodPost || m == MethodPut
}

// ContentType - формат тела HTTP запроса
type ContentType int

const (
	// ContentTypeJSON - application/json
	ContentTypeJSON ContentType = 0
	// ContentTypeURLEncoded - application/x-www-form-urlencoded
	ContentTypeURLEncoded ContentType = 1
	// ContentTypeZendServer - JSON конверт, совместимый с Zend Server
	ContentTypeZendServer ContentType = 2
)

// Valid сообщает, входит ли значение в закрытое множество форматов
func (c ContentType) Valid() bool {
	return c >= ContentTypeJSON && c <= ContentTypeZendServer
}

// MIME возвращает значение заголовка Content-Type
func (c ContentType) MIME() string {
	switch c {
	case ContentTypeURLEncoded:
		return "application/x-www-form-urlencoded"
	default:
		return "application/json"
	}
}

func (c ContentType) String() string {
	switch c {
	case ContentTypeJSON:
		return "json"
	case ContentTypeURLEncoded:
		return "url-encoded"
	case ContentTypeZendServer:
		return "zend-server"
	}
	return fmt.Sprintf("content_type(%d)", int(c))
}

// ParseContentType разбирает имя формата
func ParseContentType(s string) (ContentType, error) {
	switch strings.ToLower(s) {
	case "json":
		return ContentTypeJSON, nil
	case "url-encoded", "urlencoded", "form":
		return ContentTypeURLEncoded, nil
	case "zend-server", "zendserver", "zs":
		return ContentTypeZendServer, nil
	}
	return 0, fmt.Errorf("unknown content type %q (expected: json, url-encoded, zend-server)", s)
}

// Header - заголовок запроса; одно имя может повторяться
type Header struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// HTTPJob - задание, выполняющее HTTP запрос.
// Тело задаётся либо параметрами, либо сырой строкой; GET тела не имеет.
type HTTPJob struct {
	base
	url         string
	method      Method
	contentType ContentType
	headers     []Header
	query       map[string]string
	params      map[string]any
	rawBody     *string
}

// NewHTTPJob создаёт HTTP задание. Пустой method означает POST,
// нулевой contentType - JSON.
func NewHTTPJob(rawURL string, method Method, contentType ContentType) (*HTTPJob, error) {
	if method == "" {
		method = MethodPost
	}
	if err := validateURL("NewHTTPJob", rawURL); err != nil {
		return nil, err
	}
	if !method.Valid() {
		return nil, errs.InvalidArgument("NewHTTPJob", "invalid method %q (expected: GET, POST, PUT)", method)
	}
	if !contentType.Valid() {
		return nil, errs.InvalidArgument("NewHTTPJob", "invalid content type %d", int(contentType))
	}
	return &HTTPJob{
		url:         rawURL,
		method:      method,
		contentType: contentType,
		query:       make(map[string]string),
		params:      make(map[string]any),
	}, nil
}

func (j *HTTPJob) Kind() Kind { return KindHTTP }

// SetName задаёт имя задания
func (j *HTTPJob) SetName(name string) error {
	return j.setName("HTTPJob.SetName", name)
}

// SetURL задаёт URL запроса
func (j *HTTPJob) SetURL(rawURL string) error {
	if err := j.checkMutable("HTTPJob.SetURL"); err != nil {
		return err
	}
	if err := validateURL("HTTPJob.SetURL", rawURL); err != nil {
		return err
	}
	j.url = rawURL
	return nil
}

// SetMethod задаёт метод запроса. У GET тело не передаётся, даже если оно было задано.
func (j *HTTPJob) SetMethod(method Method) error {
	if err := j.checkMutable("HTTPJob.SetMethod"); err != nil {
		return err
	}
	if !method.Valid() {
		return errs.InvalidArgument("HTTPJob.SetMethod", "invalid method %q (expected: GET, POST, PUT)", method)
	}
	j.method = method
	return nil
}

// SetContentType задаёт формат тела
func (j *HTTPJob) SetContentType(contentType ContentType) error {
	if err := j.checkMutable("HTTPJob.SetContentType"); err != nil {
		return err
	}
	if !contentType.Valid() {
		return errs.InvalidArgument("HTTPJob.SetContentType", "invalid content type %d", int(contentType))
	}
	j.contentType = contentType
	return nil
}

// AddHeader добавляет заголовок; повторное имя добавляет ещё одно значение
func (j *HTTPJob) AddHeader(name, value string) error {
	if err := j.checkMutable("HTTPJob.AddHeader"); err != nil {
		return err
	}
	if name == "" {
		return errs.InvalidArgument("HTTPJob.AddHeader", "header name is empty")
	}
	j.headers = append(j.headers, Header{Name: name, Value: value})
	return nil
}

// AddQueryArg добавляет аргумент строки запроса
func (j *HTTPJob) AddQueryArg(key, value string) error {
	if err := j.checkMutable("HTTPJob.AddQueryArg"); err != nil {
		return err
	}
	j.query[key] = value
	return nil
}

// AddBodyParam добавляет параметр тела.
// InvalidMethod, если метод GET или уже задано сырое тело.
func (j *HTTPJob) AddBodyParam(key string, value any) error {
	if err := j.checkMutable("HTTPJob.AddBodyParam"); err != nil {
		return err
	}
	if j.method == MethodGet {
		return errs.InvalidMethod("HTTPJob.AddBodyParam", "GET request cannot have body parameters")
	}
	if j.rawBody != nil {
		return errs.InvalidMethod("HTTPJob.AddBodyParam", "raw body is already set")
	}
	j.params[key] = value
	return nil
}

// SetRawBody задаёт сырое тело.
// InvalidMethod, если метод GET или уже добавлены параметры тела.
func (j *HTTPJob) SetRawBody(content string) error {
	if err := j.checkMutable("HTTPJob.SetRawBody"); err != nil {
		return err
	}
	if j.method == MethodGet {
		return errs.InvalidMethod("HTTPJob.SetRawBody", "GET request cannot have a body")
	}
	if len(j.params) > 0 {
		return errs.InvalidMethod("HTTPJob.SetRawBody", "body parameters are already added")
	}
	j.rawBody = &content
	return nil
}

// URL возвращает URL запроса
func (j *HTTPJob) URL() string { return j.url }

// Method возвращает метод запроса
func (j *HTTPJob) Method() Method { return j.method }

// ContentType возвращает формат тела
func (j *HTTPJob) ContentType() ContentType { return j.contentType }

// Headers возвращает копию заголовков в порядке добавления
func (j *HTTPJob) Headers() []Header {
	out := make([]Header, len(j.headers))
	copy(out, j.headers)
	return out
}

// QueryArgs возвращает копию аргументов строки запроса
func (j *HTTPJob) QueryArgs() map[string]string {
	return maps.Clone(j.query)
}

// BodyParams возвращает копию параметров тела
func (j *HTTPJob) BodyParams() map[string]any {
	return maps.Clone(j.params)
}

// RawBody возвращает сырое тело и признак того, что оно задано
func (j *HTTPJob) RawBody() (string, bool) {
	if j.rawBody == nil {
		return "", false
	}
	return *j.rawBody, true
}

// RequestURL возвращает URL с добавленными аргументами строки запроса
func (j *HTTPJob) RequestURL() string {
	if len(j.query) == 0 {
		return j.url
	}
	u, err := url.Parse(j.url)
	if err != nil {
		return j.url
	}
	q := u.Query()
	for k, v := range j.query {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Body возвращает закодированное тело запроса.
// Для GET и при отсутствии тела возвращает nil. До отправки демону
// сериализация заданного тела запрещена (InvalidMethod).
func (j *HTTPJob) Body() ([]byte, error) {
	if j.method == MethodGet || !j.hasBody() {
		return nil, nil
	}
	if !j.frozen {
		return nil, errs.InvalidMethod("HTTPJob.Body", "job is not queued yet and body has been provided")
	}
	if j.rawBody != nil {
		return []byte(*j.rawBody), nil
	}
	return encodeParams(j.contentType, j.params)
}

func (j *HTTPJob) hasBody() bool {
	return j.rawBody != nil || len(j.params) > 0
}

// encodeParams кодирует параметры тела согласно формату
func encodeParams(contentType ContentType, params map[string]any) ([]byte, error) {
	switch contentType {
	case ContentTypeURLEncoded:
		values := url.Values{}
		for k, v := range params {
			values.Set(k, formValue(v))
		}
		// Encode сортирует ключи
		return []byte(values.Encode()), nil
	case ContentTypeZendServer:
		data, err := json.Marshal(map[string]any{"params": params})
		if err != nil {
			return nil, errs.InvalidArgument("HTTPJob.Body", "failed to encode body params: %v", err)
		}
		return data, nil
	default:
		data, err := json.Marshal(params)
		if err != nil {
			return nil, errs.InvalidArgument("HTTPJob.Body", "failed to encode body params: %v", err)
		}
		return data, nil
	}
}

// formValue приводит значение параметра к строке формы
func formValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	case map[string]any, []any:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	default:
		return fmt.Sprint(val)
	}
}

// validateURL проверяет, что URL абсолютный и использует http или https
func validateURL(op, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return errs.InvalidArgument(op, "invalid URL %q: %v", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errs.InvalidArgument(op, "invalid URL %q: scheme must be http or https", rawURL)
	}
	if u.Host == "" {
		return errs.InvalidArgument(op, "invalid URL %q: host is missing", rawURL)
	}
	return nil
}
