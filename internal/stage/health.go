package stage

// Health reports whether a delivery stage is able to process queue items.
// The daemon surfaces these records through its status snapshot.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy marks a stage ready to take work.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy marks a stage unable to run, with detail naming what is missing.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}
