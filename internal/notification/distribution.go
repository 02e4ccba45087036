package notification

import (
	"fmt"
	"strings"

	"wasdeploy/internal/mbean"
)

// DistributionStatus is the aggregated distribution state of an
// application across the nodes it targets.
type DistributionStatus string

const (
	DistributionDone    DistributionStatus = "DONE"
	DistributionNotDone DistributionStatus = "NOT_DONE"
	DistributionUnknown DistributionStatus = "UNKNOWN"
)

// CompositeStatusProperty is the notification property holding the
// per-node distribution states, joined with "+".
const CompositeStatusProperty = "compositeStatus"

// AggregateDistribution folds per-node flags: any "unknown" gives UNKNOWN,
// otherwise any "false" gives NOT_DONE, otherwise any "true" gives DONE.
// An empty or unrecognised set is an error.
func AggregateDistribution(flags []string) (DistributionStatus, error) {
	var countTrue, countFalse, countUnknown int
	for _, f := range flags {
		switch f {
		case "true":
			countTrue++
		case "false":
			countFalse++
		case "unknown":
			countUnknown++
		}
	}
	switch {
	case countUnknown > 0:
		return DistributionUnknown, nil
	case countFalse > 0:
		return DistributionNotDone, nil
	case countTrue > 0:
		return DistributionDone, nil
	}
	return "", fmt.Errorf("reported distribution status is invalid: %v", flags)
}

// ParseCompositeStatus aggregates a composite status such as
// "WebSphere:cell=c,node=n1,distribution=true+WebSphere:cell=c,node=n2,distribution=unknown".
func ParseCompositeStatus(composite string) (DistributionStatus, error) {
	var flags []string
	for _, part := range strings.Split(composite, "+") {
		name, err := mbean.ParseObjectName(part)
		if err != nil {
			return "", err
		}
		flags = append(flags, name.KeyProperty("distribution"))
	}
	return AggregateDistribution(flags)
}

// DistributionFromOutcome reads the aggregated status from a resolved
// DistributionStatusNode outcome. A failed task or a missing composite
// status is UNKNOWN.
func DistributionFromOutcome(o Outcome) (DistributionStatus, error) {
	if !o.Succeeded() {
		return DistributionUnknown, nil
	}
	composite, ok := o.Properties[CompositeStatusProperty]
	if !ok || composite == "" {
		return DistributionUnknown, nil
	}
	return ParseCompositeStatus(composite)
}
