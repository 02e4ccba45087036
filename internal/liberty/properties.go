package liberty

import (
	"bufio"
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

// propertiesCodec reads and writes Java properties files. Keys are kept
// flat; the viper instance using it must not split keys on dots.
type propertiesCodec struct{}

func (propertiesCodec) Decode(b []byte, v map[string]any) error {
	scanner := bufio.NewScanner(bytes.NewReader(b))
	var logical strings.Builder
	for scanner.Scan() {
		line := strings.TrimLeft(scanner.Text(), " \t\f")
		if logical.Len() == 0 && (line == "" || line[0] == '#' || line[0] == '!') {
			continue
		}
		if continued(line) {
			logical.WriteString(line[:len(line)-1])
			continue
		}
		logical.WriteString(line)
		key, value := splitProperty(logical.String())
		v[key] = value
		logical.Reset()
	}
	if logical.Len() > 0 {
		key, value := splitProperty(logical.String())
		v[key] = value
	}
	return scanner.Err()
}

func (propertiesCodec) Encode(v map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	for _, k := range keys {
		fmt.Fprintf(&buf, "%s=%v\n", k, v[k])
	}
	return buf.Bytes(), nil
}

// continued reports whether line ends in an odd number of backslashes.
func continued(line string) bool {
	n := 0
	for i := len(line) - 1; i >= 0 && line[i] == '\\'; i-- {
		n++
	}
	return n%2 == 1
}

// splitProperty splits at the first unescaped '=', ':' or whitespace.
func splitProperty(line string) (string, string) {
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '\\':
			i++
		case '=', ':', ' ', '\t', '\f':
			rest := strings.TrimLeft(line[i:], " \t\f")
			if rest != "" && (rest[0] == '=' || rest[0] == ':') {
				rest = strings.TrimLeft(rest[1:], " \t\f")
			}
			return unescape(line[:i]), unescape(rest)
		}
	}
	return unescape(line), ""
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i == len(s)-1 {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 't':
			b.WriteByte('\t')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 'f':
			b.WriteByte('\f')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func newPropertiesViper() *viper.Viper {
	registry := viper.NewCodecRegistry()
	_ = registry.RegisterCodec("properties", propertiesCodec{})
	return viper.NewWithOptions(viper.KeyDelimiter("::"), viper.WithCodecRegistry(registry))
}
