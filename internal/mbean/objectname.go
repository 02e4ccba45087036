package mbean

import (
	"fmt"
	"path"
	"sort"
	"strings"
)

// Property is one key=value pair of an ObjectName.
type Property struct {
	Key   string
	Value string
}

// ObjectName identifies an MBean: a domain and an ordered list of key
// properties. A name whose domain holds wildcards or whose property list
// ends in "*" is a pattern.
type ObjectName struct {
	Domain     string
	Properties []Property
	// PropertyPattern is set when the property list ends with "*".
	PropertyPattern bool
}

// ParseObjectName parses the "domain:key=value,..." form. Quoted values
// keep their quotes, matching how the server reports them.
func ParseObjectName(s string) (ObjectName, error) {
	colon := strings.IndexByte(s, ':')
	if colon < 0 {
		return ObjectName{}, fmt.Errorf("invalid object name %q: missing domain separator", s)
	}
	name := ObjectName{Domain: s[:colon]}

	parts, err := splitProperties(s[colon+1:])
	if err != nil {
		return ObjectName{}, fmt.Errorf("invalid object name %q: %w", s, err)
	}
	for _, part := range parts {
		if part == "*" {
			name.PropertyPattern = true
			continue
		}
		eq := strings.IndexByte(part, '=')
		if eq <= 0 {
			return ObjectName{}, fmt.Errorf("invalid object name %q: malformed property %q", s, part)
		}
		key := part[:eq]
		if name.KeyProperty(key) != "" {
			return ObjectName{}, fmt.Errorf("invalid object name %q: duplicate key %q", s, key)
		}
		name.Properties = append(name.Properties, Property{Key: key, Value: part[eq+1:]})
	}
	if len(name.Properties) == 0 && !name.PropertyPattern {
		return ObjectName{}, fmt.Errorf("invalid object name %q: no key properties", s)
	}
	return name, nil
}

// MustParseObjectName is ParseObjectName for names known at compile time.
func MustParseObjectName(s string) ObjectName {
	name, err := ParseObjectName(s)
	if err != nil {
		panic(err)
	}
	return name
}

func splitProperties(s string) ([]string, error) {
	var parts []string
	start := 0
	inQuote := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if inQuote {
				i++
			}
		case '"':
			inQuote = !inQuote
		case ',':
			if !inQuote {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	if inQuote {
		return nil, fmt.Errorf("unterminated quoted value")
	}
	return append(parts, s[start:]), nil
}

// KeyProperty returns the value of key, empty when absent.
func (o ObjectName) KeyProperty(key string) string {
	for _, p := range o.Properties {
		if p.Key == key {
			return p.Value
		}
	}
	return ""
}

// IsPattern reports whether o can match more than one name.
func (o ObjectName) IsPattern() bool {
	return o.PropertyPattern || strings.ContainsAny(o.Domain, "*?")
}

// String formats the name with properties in their original order.
func (o ObjectName) String() string {
	return o.format(o.Properties)
}

// Canonical formats the name with properties sorted by key, the form the
// server uses to compare names.
func (o ObjectName) Canonical() string {
	props := append([]Property(nil), o.Properties...)
	sort.Slice(props, func(i, j int) bool { return props[i].Key < props[j].Key })
	return o.format(props)
}

func (o ObjectName) format(props []Property) string {
	var b strings.Builder
	b.WriteString(o.Domain)
	b.WriteByte(':')
	for i, p := range props {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(p.Key)
		b.WriteByte('=')
		b.WriteString(p.Value)
	}
	if o.PropertyPattern {
		if len(props) > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('*')
	}
	return b.String()
}

// Matches reports whether name is selected by the pattern o. A name that
// is not a pattern only matches an equal name.
func (o ObjectName) Matches(name ObjectName) bool {
	if ok, err := path.Match(o.Domain, name.Domain); err != nil || !ok {
		return false
	}
	for _, p := range o.Properties {
		if name.KeyProperty(p.Key) != p.Value {
			return false
		}
	}
	return o.PropertyPattern || len(o.Properties) == len(name.Properties)
}

// Names of the management objects the deployers query.
const (
	ApplicationMBeanService = "com.ibm.websphere.application.ApplicationMBean"
	StateAttribute          = "State"
	StateStarted            = "STARTED"
)

// ApplicationMBean is the Liberty MBean registered for a deployed application.
func ApplicationMBean(appName string) ObjectName {
	return ObjectName{
		Domain: "WebSphere",
		Properties: []Property{
			{Key: "service", Value: ApplicationMBeanService},
			{Key: "name", Value: appName},
		},
	}
}

// ServletPattern selects the servlet MBeans of one web module.
func ServletPattern(appName, moduleName string) ObjectName {
	return ObjectName{
		Domain: "WebSphere",
		Properties: []Property{
			{Key: "J2EEApplication", Value: appName},
			{Key: "j2eeType", Value: "Servlet"},
			{Key: "WebModule", Value: moduleName},
		},
		PropertyPattern: true,
	}
}

// HTTPEndpoint is the default HTTP endpoint MBean whose Port attribute
// holds the listening port.
func HTTPEndpoint() ObjectName {
	return MustParseObjectName("WebSphere:feature=channelfw,type=endpoint,name=defaultHttpEndpoint")
}

// All matches every registered MBean.
func All() ObjectName {
	return ObjectName{Domain: "*", PropertyPattern: true}
}
