package dissect

import (
	"fmt"

	"github.com/runzeroinc/netkit-capture/internal/model"
)

var ntpModeNames = map[uint8]string{
	0: "reserved",
	1: "symmetric active",
	2: "symmetric passive",
	3: "client",
	4: "server",
	5: "broadcast",
	6: "control",
	7: "private",
}

// NTP decodes the first byte (LI/VN/Mode), stratum, poll, and precision
// (spec.md §4.2). Root delay, root dispersion, reference id and the
// reference/origin/receive timestamps are bounds-checked and skipped;
// only the transmit timestamp is recorded, as a raw 64-bit field.
func NTP(buf []byte) (model.LayerRecord, error) {
	layer := model.LayerRecord{Name: "NTP"}
	c := newCursor(buf)

	lvm, err := c.u8()
	if err != nil {
		truncate(&layer, "li_vn_mode")
		return finishNTP(&layer, c), nil
	}
	li := lvm >> 6
	vn := (lvm >> 3) & 0x7
	mode := lvm & 0x7
	layer.AddField("leap_indicator", fmt.Sprintf("%d", li))
	layer.AddField("version", fmt.Sprintf("%d", vn))
	layer.AddField("mode", fmt.Sprintf("%d (%s)", mode, ntpModeName(mode)))

	stratum, err := c.u8()
	if err != nil {
		truncate(&layer, "stratum")
		return finishNTP(&layer, c), nil
	}
	layer.AddField("stratum", fmt.Sprintf("%d", stratum))

	poll, err := c.u8()
	if err != nil {
		truncate(&layer, "poll")
		return finishNTP(&layer, c), nil
	}
	layer.AddField("poll", fmt.Sprintf("%d", poll))

	precision, err := c.u8()
	if err != nil {
		truncate(&layer, "precision")
		return finishNTP(&layer, c), nil
	}
	layer.AddField("precision", fmt.Sprintf("%d", int8(precision)))

	if _, err := c.u32(); err != nil { // root delay
		truncate(&layer, "root_delay")
		return finishNTP(&layer, c), nil
	}
	if _, err := c.u32(); err != nil { // root dispersion
		truncate(&layer, "root_dispersion")
		return finishNTP(&layer, c), nil
	}
	if _, err := c.u32(); err != nil { // reference id
		truncate(&layer, "reference_id")
		return finishNTP(&layer, c), nil
	}
	if _, err := c.u64(); err != nil { // reference timestamp
		truncate(&layer, "reference_timestamp")
		return finishNTP(&layer, c), nil
	}
	if _, err := c.u64(); err != nil { // origin timestamp
		truncate(&layer, "origin_timestamp")
		return finishNTP(&layer, c), nil
	}
	if _, err := c.u64(); err != nil { // receive timestamp
		truncate(&layer, "receive_timestamp")
		return finishNTP(&layer, c), nil
	}
	transmit, err := c.u64()
	if err != nil {
		truncate(&layer, "transmit_timestamp")
		return finishNTP(&layer, c), nil
	}
	layer.AddField("transmit_timestamp", fmt.Sprintf("0x%016x", transmit))

	layer.Span = model.ByteSpan{Length: c.offset()}
	return layer, nil
}

func ntpModeName(m uint8) string {
	if name, ok := ntpModeNames[m]; ok {
		return name
	}
	return "unknown"
}

func finishNTP(layer *model.LayerRecord, c *cursor) model.LayerRecord {
	layer.Span = model.ByteSpan{Length: c.offset()}
	return *layer
}
