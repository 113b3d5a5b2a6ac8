package traffic

// QdiscConfig describes a traffic control qdisc operation.
type QdiscConfig struct {
	Device  string
	Root    bool
	Parent  string
	Handle  string
	Kind    string
	Options []string
}

func (qc QdiscConfig) placement() []string {
	var args []string
	switch {
	case qc.Root:
		args = append(args, "root")
	case qc.Parent != "":
		args = append(args, "parent", qc.Parent)
	}
	if qc.Handle != "" {
		args = append(args, "handle", qc.Handle)
	}
	return args
}

// AddArgs renders the tc arguments that add the qdisc.
func (qc QdiscConfig) AddArgs() []string {
	args := append([]string{"qdisc", "add", "dev", qc.Device}, qc.placement()...)
	if qc.Kind != "" {
		args = append(args, qc.Kind)
	}
	return append(args, qc.Options...)
}

// DeleteArgs renders the tc arguments that delete the qdisc. Deleting the
// root qdisc drops every class and filter hanging off it.
func (qc QdiscConfig) DeleteArgs() []string {
	args := append([]string{"qdisc", "del", "dev", qc.Device}, qc.placement()...)
	if qc.Kind != "" && !qc.Root {
		args = append(args, qc.Kind)
	}
	return args
}

// ClassConfig describes an HTB class.
type ClassConfig struct {
	Device  string
	Parent  string
	ClassID string
	Kind    string
	Options []string
}

// AddArgs renders the tc arguments that add the class.
func (cc ClassConfig) AddArgs() []string {
	args := []string{
		"class", "add",
		"dev", cc.Device,
		"parent", cc.Parent,
		"classid", cc.ClassID,
		cc.Kind,
	}
	return append(args, cc.Options...)
}

// FilterConfig holds tc filter parameters.
type FilterConfig struct {
	Device   string
	Parent   string
	Protocol string
	Prio     string
	Kind     string
	Match    []string
	FlowID   string
}

// AddArgs renders the tc arguments that add the filter.
func (fc FilterConfig) AddArgs() []string {
	args := []string{
		"filter", "add",
		"dev", fc.Device,
		"protocol", fc.Protocol,
		"parent", fc.Parent,
		"prio", fc.Prio,
		fc.Kind,
	}
	args = append(args, fc.Match...)
	if fc.FlowID != "" {
		args = append(args, "flowid", fc.FlowID)
	}
	return args
}

func rootQdisc(device string) QdiscConfig {
	return QdiscConfig{Device: device, Root: true}
}

// showArgs renders `<object> show dev <device>` for qdisc, class and filter.
func showArgs(object, device string) []string {
	return []string{object, "show", "dev", device}
}
