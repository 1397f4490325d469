package schema

import (
	"fmt"
	"net/netip"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errspkg "github.com/drblury/topicflow/internal/runtime/errors"
	"github.com/drblury/topicflow/internal/runtime/payload"
	"github.com/drblury/topicflow/internal/runtime/topic"
)

type named struct {
	ID      uint32 `topic:"id"`
	Name    string `topic:"name"`
	Payload string `topic:"payload"`
}

type reading uint32

type clearable struct {
	Name string  `topic:"name"`
	ID   *uint32 `topic:"id,codec=optional"`
}

type pair struct {
	A int
	B string
}

type device struct {
	Addr  netip.Addr `topic:"addr"`
	Ratio float64    `topic:"ratio"`
	On    bool       `topic:"on"`
}

func TestDescribeStruct(t *testing.T) {
	desc := Describe[named]("<id>/<name>", WithPayload("<payload>"))

	assert.Equal(t, "named", desc.Tag)
	assert.Equal(t, reflect.TypeFor[named](), desc.Type)
	require.Len(t, desc.Fields, 3)
	assert.Equal(t, FieldRef{Index: 0, Name: "id"}, desc.Fields[0].Ref)
	assert.Equal(t, FieldRef{Index: 2, Name: "payload"}, desc.Fields[2].Ref)
	assert.False(t, desc.Positional)
}

func TestDescribeDefinedType(t *testing.T) {
	desc := Describe[reading]("v4/hello/world/<0>", WithTag("Variant4"))

	assert.Equal(t, "Variant4", desc.Tag)
	assert.True(t, desc.Positional)
	require.Len(t, desc.Fields, 1)
	assert.Equal(t, "0", desc.Fields[0].Ref.Name)
}

func TestDescribePositionalStruct(t *testing.T) {
	desc := Describe[pair]("<0>/<1>", Positional())
	require.Len(t, desc.Fields, 2)
	assert.Equal(t, "0", desc.Fields[0].Ref.Name)
	assert.Equal(t, "1", desc.Fields[1].Ref.Name)

	desc = Describe[pair]("<A>/<B>")
	assert.Equal(t, "A", desc.Fields[0].Ref.Name)
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name  string
		desc  Descriptor
		check func(t *testing.T, err error)
	}{
		{
			name: "unused payload field",
			desc: Describe[named]("<id>/<name>"),
			check: func(t *testing.T, err error) {
				var unused *errspkg.UnusedFieldsError
				require.ErrorAs(t, err, &unused)
				assert.Equal(t, []string{"payload"}, unused.Fields)
			},
		},
		{
			name: "field bound twice",
			desc: Describe[named]("<id>/<name>/<id>", WithPayload("<payload>")),
			check: func(t *testing.T, err error) {
				var dup *errspkg.DuplicateFieldUseError
				require.ErrorAs(t, err, &dup)
				assert.Equal(t, "id", dup.Field)
			},
		},
		{
			name: "payload already bound to the topic",
			desc: Describe[named]("<id>/<name>/<payload>", WithPayload("<name>")),
			check: func(t *testing.T, err error) {
				var dup *errspkg.DuplicateFieldUseError
				require.ErrorAs(t, err, &dup)
				assert.Equal(t, "name", dup.Field)
			},
		},
		{
			name: "unknown parameter",
			desc: Describe[named]("<id>/<nope>", WithPayload("<payload>")),
			check: func(t *testing.T, err error) {
				var unknown *errspkg.UnknownFieldError
				require.ErrorAs(t, err, &unknown)
				assert.Equal(t, "nope", unknown.Field)
			},
		},
		{
			name: "unknown payload",
			desc: Describe[named]("<id>/<name>", WithPayload("<body>")),
			check: func(t *testing.T, err error) {
				var unknown *errspkg.UnknownFieldError
				require.ErrorAs(t, err, &unknown)
				assert.Equal(t, "body", unknown.Field)
			},
		},
		{
			name: "malformed pattern",
			desc: Describe[named]("<id>//<name>", WithPayload("<payload>")),
			check: func(t *testing.T, err error) {
				var malformed *errspkg.MalformedPatternError
				require.ErrorAs(t, err, &malformed)
				assert.ErrorIs(t, err, errspkg.ErrEmptyTopicLayer)
			},
		},
		{
			name: "payload reference without brackets",
			desc: Describe[named]("<id>/<name>", WithPayload("payload")),
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, errspkg.ErrInvalidPayloadRef)
			},
		},
		{
			name: "unit shape",
			desc: Describe[struct{}]("unit"),
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, errspkg.ErrUnitShape)
			},
		},
		{
			name: "topic field without text form",
			desc: DescribeMessage("Blob", "<data>", "", []Field{{Ref: FieldRef{Name: "data"}, Type: reflect.TypeFor[[]string]()}}, nil),
			check: func(t *testing.T, err error) {
				var unsupported *errspkg.UnsupportedFieldTypeError
				require.ErrorAs(t, err, &unsupported)
				assert.Equal(t, "data", unsupported.Field)
			},
		},
		{
			name: "unknown codec",
			desc: DescribeMessage("Blob", "blob", "<data>", []Field{{Ref: FieldRef{Name: "data"}, Type: reflect.TypeFor[string](), Codec: "nope"}}, nil),
			check: func(t *testing.T, err error) {
				var unknown *errspkg.UnknownCodecError
				require.ErrorAs(t, err, &unknown)
				assert.Equal(t, "nope", unknown.Codec)
			},
		},
		{
			name: "missing binder",
			desc: Descriptor{Tag: "x", Topic: "x"},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, errspkg.ErrBinderRequired)
			},
		},
		{
			name: "missing tag",
			desc: Descriptor{Topic: "x"},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, errspkg.ErrShapeTagRequired)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Build(tt.desc)
			require.Error(t, err)
			assert.Nil(t, s)
			tt.check(t, err)
		})
	}
}

func TestMustBuildPanics(t *testing.T) {
	assert.Panics(t, func() { MustBuild(Describe[named]("<id>")) })
}

func TestEncodeWithPayload(t *testing.T) {
	s := MustBuild(Describe[named]("<id>/<name>", WithPayload("<payload>")))

	tp, data, err := s.Encode(named{ID: 1, Name: "name1", Payload: "payload1"})
	require.NoError(t, err)
	assert.Equal(t, "1/name1", tp.String())
	assert.Equal(t, `"payload1"`, string(data))

	v, depth, err := s.Match(Layers(tp), data)
	require.NoError(t, err)
	assert.Equal(t, 3, depth)
	assert.Equal(t, named{ID: 1, Name: "name1", Payload: "payload1"}, v)
}

func TestEncodeAcceptsPointer(t *testing.T) {
	s := MustBuild(Describe[named]("<id>/<name>", WithPayload("<payload>")))

	tp, _, err := s.Encode(&named{ID: 2, Name: "x"})
	require.NoError(t, err)
	assert.Equal(t, "2/x", tp.String())

	_, _, err = s.Encode((*named)(nil))
	assert.ErrorIs(t, err, errspkg.ErrNilValue)

	_, _, err = s.Encode(nil)
	assert.ErrorIs(t, err, errspkg.ErrNilValue)
}

func TestPositionalShape(t *testing.T) {
	s := MustBuild(Describe[reading]("v4/hello/world/<0>"))

	tp, data, err := s.Encode(reading(7))
	require.NoError(t, err)
	assert.Equal(t, "v4/hello/world/7", tp.String())
	assert.Empty(t, data)

	v, err := s.MatchTopic(tp, data)
	require.NoError(t, err)
	assert.Equal(t, reading(7), v)
}

func TestPayloadOnlyShape(t *testing.T) {
	s := MustBuild(Describe[named]("3/<name>/<id>", WithPayload("<payload>")))
	assert.Equal(t, "3/+/+", s.FilterString())

	s = MustBuild(DescribeMessage("Variant3", "3", "<0>",
		[]Field{{Ref: FieldRef{Name: "0"}, Type: reflect.TypeFor[string]()}}, nil))

	tp, data, err := s.Encode(NewMessage("Variant3", map[string]any{"0": "name3"}))
	require.NoError(t, err)
	assert.Equal(t, "3", tp.String())
	assert.Equal(t, `"name3"`, string(data))
}

func TestOptionalPayload(t *testing.T) {
	s := MustBuild(Describe[clearable]("v5/hello/world/<name>", WithPayload("<id>")))
	assert.Equal(t, "optional", s.Codec().Name())

	v, err := s.MatchTopic(topic.FromString("v5/hello/world/steve"), nil)
	require.NoError(t, err)
	assert.Equal(t, clearable{Name: "steve"}, v)

	id := uint32(9)
	tp, data, err := s.Encode(clearable{Name: "steve", ID: &id})
	require.NoError(t, err)
	assert.Equal(t, "v5/hello/world/steve", tp.String())
	assert.Equal(t, "9", string(data))

	_, data, err = s.Encode(clearable{Name: "steve"})
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestExplicitCodecWins(t *testing.T) {
	s := MustBuild(Describe[named]("<id>/<name>", WithPayload("<payload>"), WithCodec(payload.Raw{})))

	_, data, err := s.Encode(named{ID: 1, Name: "a", Payload: "plain"})
	require.NoError(t, err)
	assert.Equal(t, "plain", string(data))
}

func TestTextForms(t *testing.T) {
	s := MustBuild(Describe[device]("<addr>/<ratio>/<on>"))
	in := device{Addr: netip.MustParseAddr("10.0.0.1"), Ratio: 0.1, On: true}

	tp, _, err := s.Encode(in)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1/0.1/true", tp.String())

	out, err := s.MatchTopic(tp, nil)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

// serial reads "sn-7" but has no MarshalText.
type serial int

func (s *serial) UnmarshalText(text []byte) error {
	n, ok := strings.CutPrefix(string(text), "sn-")
	if !ok {
		return fmt.Errorf("serial %q lacks the sn- prefix", text)
	}
	var v int
	if _, err := fmt.Sscan(n, &v); err != nil {
		return err
	}
	*s = serial(v)
	return nil
}

type unit struct {
	Serial serial `topic:"serial"`
}

func TestHalfTextFormUsesKind(t *testing.T) {
	s := MustBuild(Describe[unit]("units/<serial>"))

	tp, _, err := s.Encode(unit{Serial: 7})
	require.NoError(t, err)
	assert.Equal(t, "units/7", tp.String())

	out, err := s.MatchTopic(tp, nil)
	require.NoError(t, err)
	assert.Equal(t, unit{Serial: 7}, out)
}

func TestMatchFailures(t *testing.T) {
	s := MustBuild(Describe[named]("v1/<id>/<name>", WithPayload("<payload>")))

	tests := []struct {
		name      string
		topic     string
		payload   []byte
		wantDepth int
		check     func(t *testing.T, err error)
	}{
		{
			name:      "missing layer",
			topic:     "v1/7",
			payload:   []byte(`"x"`),
			wantDepth: 2,
			check: func(t *testing.T, err error) {
				var missing *errspkg.MissingSegmentError
				require.ErrorAs(t, err, &missing)
				assert.Equal(t, "name", missing.Segment)
			},
		},
		{
			name:      "literal mismatch",
			topic:     "v2/7/x",
			wantDepth: 0,
			check: func(t *testing.T, err error) {
				var mismatch *errspkg.LayerMismatchError
				require.ErrorAs(t, err, &mismatch)
				assert.Equal(t, "v1", mismatch.Expected)
				assert.Equal(t, "v2", mismatch.Actual)
			},
		},
		{
			name:      "unparsable parameter",
			topic:     "v1/seven/x",
			wantDepth: 1,
			check: func(t *testing.T, err error) {
				var invalid *errspkg.InvalidSegmentError
				require.ErrorAs(t, err, &invalid)
				assert.Equal(t, "id", invalid.Field)
				assert.Equal(t, "seven", invalid.Value)
			},
		},
		{
			name:      "payload not utf8",
			topic:     "v1/7/x",
			payload:   []byte{0xff},
			wantDepth: 4,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, errspkg.ErrNotUTF8)
			},
		},
		{
			name:      "payload not json",
			topic:     "v1/7/x",
			payload:   []byte("x"),
			wantDepth: 4,
			check: func(t *testing.T, err error) {
				var codecErr *errspkg.CodecError
				require.ErrorAs(t, err, &codecErr)
				assert.Equal(t, "json", codecErr.Codec)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, depth, err := s.Match(Layers(topic.FromString(tt.topic)), tt.payload)
			require.Error(t, err)
			assert.Nil(t, v)
			assert.Equal(t, tt.wantDepth, depth)
			tt.check(t, err)
		})
	}
}

func TestMatchIgnoresTrailingLayers(t *testing.T) {
	s := MustBuild(Describe[reading]("<0>"))

	v, depth, err := s.Match([]string{"3", "alice"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, depth)
	assert.Equal(t, reading(3), v)
}

func TestCustomCodecErrorsAreWrapped(t *testing.T) {
	failing := payload.Funcs{
		CodecName: "failing",
		DecodeFunc: func([]byte, reflect.Type) (any, error) {
			return nil, assert.AnError
		},
	}
	s := MustBuild(Describe[named]("<id>/<name>", WithPayload("<payload>"), WithCodec(failing)))

	_, _, err := s.Match([]string{"1", "a"}, []byte("x"))
	var codecErr *errspkg.CodecError
	require.ErrorAs(t, err, &codecErr)
	assert.Equal(t, "failing", codecErr.Codec)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestFromText(t *testing.T) {
	s := MustBuild(Describe[named]("<id>/<name>", WithPayload("<payload>")))

	v, err := s.FromText(map[string]string{"id": "4", "name": "bob", "payload": `"hi"`})
	require.NoError(t, err)
	assert.Equal(t, named{ID: 4, Name: "bob", Payload: "hi"}, v)

	_, err = s.FromText(map[string]string{"id": "x"})
	var invalid *errspkg.InvalidSegmentError
	assert.ErrorAs(t, err, &invalid)

	_, err = s.FromText(map[string]string{"other": "1"})
	var unknown *errspkg.UnknownFieldError
	assert.ErrorAs(t, err, &unknown)
}

func TestSchemaAccessors(t *testing.T) {
	s := MustBuild(Describe[named]("n/<id>/<name>", WithPayload("<payload>")))

	assert.Equal(t, "named", s.Tag())
	assert.Equal(t, "n/<id>/<name>", s.Pattern().String())
	assert.Equal(t, "n/+/+", s.FilterString())
	assert.Len(t, s.Fields(), 3)

	f, ok := s.PayloadField()
	require.True(t, ok)
	assert.Equal(t, "payload", f.Ref.Name)

	s = MustBuild(Describe[reading]("<0>"))
	_, ok = s.PayloadField()
	assert.False(t, ok)
}
