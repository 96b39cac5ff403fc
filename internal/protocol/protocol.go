// Package protocol defines the wire format spoken between the client and the
// job queue daemon.
//
// Every exchange is one Request answered by exactly one Response. Both are
// JSON objects framed one per line. A Response carries the id of the Request
// it answers and a status that is either StatusOK or one of the error codes
// of the errs package, so daemon failures map 1:1 onto client error kinds.
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/aatumaykin/jobqueue/internal/errs"
)

// Op - имя операции протокола
type Op string

const (
	OpHello           Op = "hello"
	OpGetQueues       Op = "get_queues"
	OpGetDefaultQueue Op = "get_default_queue"
	OpGetQueue        Op = "get_queue"
	OpHasQueue        Op = "has_queue"
	OpAddQueue        Op = "add_queue"
	OpModifyQueue     Op = "modify_queue"
	OpDeleteQueue     Op = "delete_queue"
	OpSuspendQueue    Op = "suspend_queue"
	OpResumeQueue     Op = "resume_queue"
	OpGetJobs         Op = "get_jobs"
	OpGetJob          Op = "get_job"
	OpScheduleJob     Op = "schedule_job"
	OpCancelJob       Op = "cancel_job"
)

// StatusOK - статус успешного ответа
const StatusOK = "ok"

// Request - запрос клиента
type Request struct {
	ID      string          `json:"id"`
	Op      Op              `json:"op"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response - ответ демона
type Response struct {
	ID      string          `json:"id"`
	Status  string          `json:"status"`
	Error   string          `json:"error,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewRequest создаёт запрос с новым идентификатором корреляции.
// payload может быть nil.
func NewRequest(op Op, payload any) (*Request, error) {
	req := &Request{ID: uuid.NewString(), Op: op}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s payload: %w", op, err)
		}
		req.Payload = data
	}
	return req, nil
}

// DecodePayload разбирает payload запроса в v
func (r *Request) DecodePayload(v any) error {
	if len(r.Payload) == 0 {
		return fmt.Errorf("%s: payload is missing", r.Op)
	}
	if err := Unmarshal(r.Payload, v); err != nil {
		return fmt.Errorf("%s: failed to decode payload: %w", r.Op, err)
	}
	return nil
}

// Unmarshal разбирает payload в v. Числа в значениях any остаются json.Number,
// чтобы целые больше 2^53 не теряли точность.
func Unmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after payload")
	}
	return nil
}

// OK создаёт успешный ответ на запрос id
func OK(id string, payload any) (*Response, error) {
	resp := &Response{ID: id, Status: StatusOK}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode response payload: %w", err)
		}
		resp.Payload = data
	}
	return resp, nil
}

// Fail создаёт ответ с ошибкой. Код статуса берётся из вида ошибки.
func Fail(id string, err error) *Response {
	kind := errs.KindOf(err)
	msg := err.Error()
	var e *errs.Error
	if errors.As(err, &e) && e.Err != nil {
		msg = e.Err.Error()
	}
	return &Response{ID: id, Status: kind.Code(), Error: msg}
}

// Err возвращает ошибку клиента для неуспешного ответа или nil
func (r *Response) Err(op string) error {
	if r.Status == StatusOK {
		return nil
	}
	msg := r.Error
	if msg == "" {
		msg = "daemon reported " + r.Status
	}
	return errs.New(errs.FromCode(r.Status), op, "%s", msg)
}
