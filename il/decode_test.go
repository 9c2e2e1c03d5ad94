package il_test

import (
	stderrors "errors"
	"testing"

	"github.com/wippyai/dynbind/il"
)

func header() []byte {
	return []byte{0x00, 'i', 'l', 'm', 0x01, 0x00, 0x00, 0x00}
}

func section(id byte, body ...byte) []byte {
	return append([]byte{id, byte(len(body))}, body...)
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestParseModule_Header(t *testing.T) {
	tests := []struct {
		want error
		name string
		data []byte
	}{
		{name: "bad magic", data: []byte{0x00, 'a', 's', 'm', 0x01, 0, 0, 0}, want: il.ErrInvalidMagic},
		{name: "bad version", data: []byte{0x00, 'i', 'l', 'm', 0x02, 0, 0, 0}, want: il.ErrInvalidVersion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := il.ParseModule(tt.data)
			if !stderrors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := il.ParseModule([]byte{0x00, 'i'}); err == nil {
		t.Error("expected error for truncated header")
	}
}

func TestParseModule_Malformed(t *testing.T) {
	moduleSection := section(il.SectionModule, 1, 'M', 0)
	tests := []struct {
		name string
		data []byte
	}{
		{
			name: "out of order sections",
			data: concat(header(), section(il.SectionTypeDef, 0), section(il.SectionTypeRef, 0)),
		},
		{
			name: "repeated section",
			data: concat(header(), moduleSection, moduleSection),
		},
		{
			name: "unknown section",
			data: concat(header(), section(9, 0)),
		},
		{
			name: "trailing bytes in section",
			data: concat(header(), section(il.SectionModule, 1, 'M', 0, 0xFF)),
		},
		{
			name: "section size past end",
			data: concat(header(), []byte{il.SectionModule, 10, 1, 'M'}),
		},
		{
			name: "declaring type not yet defined",
			data: concat(header(), moduleSection, section(il.SectionTypeDef, 1, 0, 1, 'T', 0, 5)),
		},
		{
			name: "type reference row out of range",
			data: concat(header(), moduleSection, section(il.SectionTypeDef, 1, 0, 1, 'T', 0, 0), section(il.SectionMember, 1, 5)),
		},
		{
			name: "code for missing method",
			data: concat(header(), moduleSection, section(il.SectionCode, 1, 3)),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := il.ParseModule(tt.data); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseModule_CustomSectionAnywhere(t *testing.T) {
	data := concat(header(),
		section(il.SectionCustom, 2, 'c', '1', 0xAA),
		section(il.SectionModule, 1, 'M', 0),
		section(il.SectionCustom, 2, 'c', '2'),
	)
	m, err := il.ParseModule(data)
	if err != nil {
		t.Fatalf("ParseModule: %v", err)
	}
	if len(m.CustomSections) != 2 {
		t.Fatalf("custom sections: got %d, want 2", len(m.CustomSections))
	}
	if m.CustomSections[0].Name != "c1" || len(m.CustomSections[0].Data) != 1 {
		t.Errorf("first custom section: %+v", m.CustomSections[0])
	}
	if m.Name != "M" {
		t.Errorf("Name: got %q", m.Name)
	}
}

func TestParseModule_Truncated(t *testing.T) {
	data := mustEncode(t, buildSample(t).m)
	if _, err := il.ParseModule(data[:len(data)-1]); err == nil {
		t.Error("expected error for truncated final section")
	}
}

func TestParseModuleValidate(t *testing.T) {
	data := mustEncode(t, buildSample(t).m)
	m, err := il.ParseModuleValidate(data)
	if err != nil {
		t.Fatalf("ParseModuleValidate: %v", err)
	}
	if m.Type("Native.Methods") == nil {
		t.Error("type lost")
	}
}
