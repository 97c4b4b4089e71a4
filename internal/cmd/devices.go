package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/Alia5/padbridge/transport"
)

// Devices lists controllers the bridge could open.
type Devices struct {
	VID    uint16 `help:"Vendor ID, 0 for any" default:"0x04b4"`
	PID    uint16 `help:"Product ID, 0 for any" default:"0x2412"`
	Serial bool   `help:"Also list serial ports"`
	JSON   bool   `help:"Print JSON instead of a table" name:"json"`
}

func (d *Devices) Run() error {
	return d.list(os.Stdout, transport.EnumerateHID, transport.SerialPorts)
}

func (d *Devices) list(w io.Writer, enumerate func(vid, pid uint16) ([]transport.DeviceInfo, error), ports func() ([]string, error)) error {
	infos, err := enumerate(d.VID, d.PID)
	if err != nil {
		return err
	}
	var serial []string
	if d.Serial {
		if serial, err = ports(); err != nil {
			return fmt.Errorf("list serial ports: %w", err)
		}
	}

	if d.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			HID    []transport.DeviceInfo `json:"hid"`
			Serial []string               `json:"serial,omitempty"`
		}{HID: infos, Serial: serial})
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tVID\tPID\tIF\tPRODUCT\tSERIAL")
	for _, i := range infos {
		fmt.Fprintf(tw, "%s\t%04x\t%04x\t%d\t%s\t%s\n", i.Path, i.VendorID, i.ProductID, i.Interface, i.Product, i.Serial)
	}
	for _, p := range serial {
		fmt.Fprintf(tw, "%s\t\t\t\tserial port\t\n", p)
	}
	return tw.Flush()
}
