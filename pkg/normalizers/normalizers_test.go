package normalizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizers(t *testing.T) {
	tests := []struct {
		name  string
		chain []string
		input string
		want  string
	}{
		{name: "trim", chain: []string{NameTrim}, input: "  GB-COH-123 \t", want: "GB-COH-123"},
		{name: "discriminator", chain: []string{NameTrim, NameUppercase}, input: " organisation ", want: "ORGANISATION"},
		{name: "lowercase", chain: []string{NameLowercase}, input: "ACTIVITY", want: "activity"},
		{name: "invisible", chain: []string{NameStripInvisible, NameTrim}, input: "\ufeffXM-DAC-41114\u200b ", want: "XM-DAC-41114"},
		{name: "collapse", chain: []string{NameCollapseWhitespace}, input: "Ministry  of\n Health", want: "Ministry of Health"},
		{name: "unknown skipped", chain: []string{"nope", NameTrim}, input: " x ", want: "x"},
		{name: "empty chain", chain: nil, input: " x ", want: " x "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ApplyChain(tt.input, tt.chain...))
		})
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(NameTrim, NameUppercase))
	assert.EqualError(t, Validate(NameTrim, "soundex"), `unknown normalizer "soundex"`)
}
