package traffic

const (
	// IfbPrefix is the prefix of IFB mirror devices; tc limits names to 15 chars.
	IfbPrefix = "ifb4"

	// HTB tree installed by Apply. Unclassified traffic lands in the leaf class.
	rootHandle     = "1:"
	parentClassID  = "1:1"
	leafClassID    = "1:11"
	defaultClass   = "11"
	netemHandle    = "10:"
	filterPriority = "1"

	// Messages shown to operators after a reset.
	msgNoShaping = "No custom traffic shaping was applied on %s."
	msgReset     = "Traffic shaping reset on %s."
	// NoShapingNote is appended to status output when only a kernel default qdisc is present.
	NoShapingNote = "Note: No traffic shaping is currently configured on this interface."
)

// noRootQdisc matches tc output when an interface has no custom root qdisc to delete.
var noRootQdisc = []string{
	"Cannot delete qdisc with handle of zero",
	"No such file or directory",
}

// defaultQdiscMarkers identify kernel default qdiscs in tc qdisc show output.
var defaultQdiscMarkers = []string{"noqueue", "pfifo_fast"}
