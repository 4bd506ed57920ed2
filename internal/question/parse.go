package question

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ParseError reports an unparsable model response. Index is the offending
// array element, or -1 when the response as a whole is unusable.
type ParseError struct {
	Index int
	Cause error
}

func (e *ParseError) Error() string {
	if e == nil {
		return "unparsable response"
	}
	if e.Index >= 0 {
		return fmt.Sprintf("unparsable response: item %d: %v", e.Index, e.Cause)
	}
	return fmt.Sprintf("unparsable response: %v", e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

var ErrNotArray = errors.New("model did not return a JSON array")

type wireCitation struct {
	File       *string `json:"file"`
	Page       *wholeNumber `json:"page"`
	QuoteStart *wholeNumber `json:"quote_start"`
	QuoteEnd   *wholeNumber `json:"quote_end"`
	Quote      *string      `json:"quote"`
}

// wholeNumber accepts 3 and 3.0 alike; models often emit integral floats for
// page numbers and offsets. A fractional value is a type error.
type wholeNumber int

func (n *wholeNumber) UnmarshalJSON(b []byte) error {
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return &json.UnmarshalTypeError{Value: typeErr.Value, Type: reflect.TypeOf(0)}
		}
		return err
	}
	if f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return &json.UnmarshalTypeError{Value: "number " + string(b), Type: reflect.TypeOf(0)}
	}
	*n = wholeNumber(f)
	return nil
}

func (n *wholeNumber) intPtr() *int {
	if n == nil {
		return nil
	}
	v := int(*n)
	return &v
}

type wireItem struct {
	Type          *string           `json:"type" validate:"required,oneof=mcq_single mcq_multi short_answer case_study"`
	Stem          *string           `json:"stem" validate:"required,min=1"`
	Options       map[string]string `json:"options" validate:"omitempty,dive,keys,oneof=A B C D,endkeys"`
	CorrectOption *CorrectOption    `json:"correct_option"`
	Explanation   *string           `json:"explanation" validate:"required"`
	Citation      *wireCitation     `json:"citation" validate:"required"`
	Difficulty    *string           `json:"difficulty" validate:"required,oneof=easy medium hard"`
	Topic         *string           `json:"topic"`
	Subtopic      *string           `json:"subtopic"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("choice_label", func(fl validator.FieldLevel) bool {
		return ChoiceLabel(fl.Field().String()).Valid()
	})
	return v
}

// ParseItems decodes raw model output into question items. The text must be a
// JSON array of objects; a single invalid element fails the whole batch.
func ParseItems(raw string) ([]QuestionItem, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, &ParseError{Index: -1, Cause: errors.New("empty response")}
	}

	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(text), &elems); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, &ParseError{Index: -1, Cause: fmt.Errorf("%w (got %s)", ErrNotArray, typeErr.Value)}
		}
		return nil, &ParseError{Index: -1, Cause: err}
	}
	if elems == nil {
		return nil, &ParseError{Index: -1, Cause: fmt.Errorf("%w (got null)", ErrNotArray)}
	}

	out := make([]QuestionItem, 0, len(elems))
	for i, elem := range elems {
		it, err := parseItem(elem)
		if err != nil {
			return nil, &ParseError{Index: i, Cause: err}
		}
		out = append(out, it)
	}
	return out, nil
}

func parseItem(raw json.RawMessage) (QuestionItem, error) {
	trimmed := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(trimmed, "{") {
		return QuestionItem{}, errors.New("element is not a JSON object")
	}

	if err := checkKeys(raw, itemFields, ""); err != nil {
		return QuestionItem{}, err
	}

	var w wireItem
	if err := json.Unmarshal(raw, &w); err != nil {
		return QuestionItem{}, describeDecodeError(err)
	}
	if err := validate.Struct(w); err != nil {
		return QuestionItem{}, describeValidationError(err)
	}

	it := QuestionItem{
		Type:          QuestionType(*w.Type),
		Stem:          *w.Stem,
		CorrectOption: w.CorrectOption,
		Explanation:   *w.Explanation,
		Difficulty:    Difficulty(*w.Difficulty),
		Topic:         w.Topic,
		Subtopic:      w.Subtopic,
		Citation: Citation{
			Page:       w.Citation.Page.intPtr(),
			QuoteStart: w.Citation.QuoteStart.intPtr(),
			QuoteEnd:   w.Citation.QuoteEnd.intPtr(),
			Quote:      w.Citation.Quote,
		},
	}
	if w.Citation.File != nil {
		it.Citation.File = *w.Citation.File
	}
	if w.Options != nil {
		it.Options = make(map[ChoiceLabel]string, len(w.Options))
		for k, v := range w.Options {
			it.Options[ChoiceLabel(k)] = v
		}
	}
	return it, nil
}

var (
	itemFields     = jsonFields(reflect.TypeOf(wireItem{}))
	citationFields = jsonFields(reflect.TypeOf(wireCitation{}))
)

func jsonFields(t reflect.Type) []string {
	out := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if name := strings.SplitN(t.Field(i).Tag.Get("json"), ",", 2)[0]; name != "" && name != "-" {
			out = append(out, name)
		}
	}
	return out
}

// checkKeys rejects what encoding/json would otherwise accept silently: a
// key repeated in one object, or a key that matches a field only when case
// is ignored. Unknown keys pass. The citation object is checked the same way
// and option labels must not repeat.
func checkKeys(raw json.RawMessage, fields []string, prefix string) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil
	}
	seen := make(map[string]struct{})
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("field %q appears more than once", prefix+key)
		}
		seen[key] = struct{}{}

		exact := false
		for _, f := range fields {
			if f == key {
				exact = true
				break
			}
		}
		if !exact {
			for _, f := range fields {
				if strings.EqualFold(f, key) {
					return fmt.Errorf("field %q must be spelled %q", prefix+key, prefix+f)
				}
			}
		}

		var val json.RawMessage
		if err := dec.Decode(&val); err != nil {
			return err
		}
		if prefix != "" || !exact {
			continue
		}
		switch key {
		case "citation":
			err = checkKeys(val, citationFields, "citation.")
		case "options":
			err = checkKeys(val, nil, "options.")
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func describeDecodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return fmt.Errorf("field %q: expected %s, got %s", typeErr.Field, typeErr.Type, typeErr.Value)
	}
	return err
}

func describeValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("field %q is required", field))
		case "min":
			msgs = append(msgs, fmt.Sprintf("field %q must not be empty", field))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("field %q has invalid value %v (allowed: %s)", field, fe.Value(), fe.Param()))
		case "choice_label":
			msgs = append(msgs, fmt.Sprintf("field %q has invalid choice label %v", field, fe.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("field %q failed %s", field, fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
