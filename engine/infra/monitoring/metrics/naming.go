package metrics

import "strings"

// Namespace prefixes every metric exported by the service.
const Namespace = "docrag"

// MetricName prefixes name with the service namespace unless it already carries it.
func MetricName(name string) string {
	if strings.HasPrefix(name, Namespace+"_") {
		return name
	}
	return Namespace + "_" + name
}

// MetricNameWithSubsystem builds namespace_subsystem_name, skipping empty parts.
func MetricNameWithSubsystem(subsystem, name string) string {
	subsystem = strings.Trim(subsystem, "_")
	if subsystem == "" {
		return MetricName(name)
	}
	if name == "" {
		return Namespace + "_" + subsystem
	}
	return Namespace + "_" + subsystem + "_" + name
}
