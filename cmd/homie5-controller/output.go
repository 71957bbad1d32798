package main

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/schaze/homie5"
	"github.com/schaze/homie5/controller"
)

type propertySummary struct {
	Property string `json:"property"`
	Name     string `json:"name,omitempty"`
	Datatype string `json:"datatype"`
	Settable bool   `json:"settable"`
	Retained bool   `json:"retained"`
	Value    string `json:"value,omitempty"`
	Target   string `json:"target,omitempty"`
	Unit     string `json:"unit,omitempty"`
}

type deviceSummary struct {
	Domain     string            `json:"domain"`
	Device     string            `json:"device"`
	Name       string            `json:"name,omitempty"`
	State      string            `json:"state"`
	Version    int64             `json:"version,omitempty"`
	Properties []propertySummary `json:"properties,omitempty"`
	Alerts     map[string]string `json:"alerts,omitempty"`
	Meta       map[string]string `json:"meta,omitempty"`
}

func summarize(dev controller.Device) deviceSummary {
	s := deviceSummary{
		Domain: dev.Ref.Domain.String(),
		Device: dev.Ref.ID.String(),
		State:  dev.State.String(),
	}
	if len(dev.Alerts) > 0 {
		s.Alerts = make(map[string]string, len(dev.Alerts))
		for id, text := range dev.Alerts {
			s.Alerts[id.String()] = text
		}
	}
	if m, ok := dev.Meta[dev.Ref.ToTopic()]; ok {
		s.Meta = maps.Clone(m)
	}
	if dev.Description == nil {
		return s
	}

	s.Name = dev.Description.Name
	s.Version = dev.Description.Version
	for e := range dev.Description.Iter() {
		ps := propertySummary{
			Property: e.NodeID.String() + "/" + e.PropID.String(),
			Name:     e.Prop.Name,
			Datatype: e.Prop.Datatype.String(),
			Settable: e.Prop.Settable,
			Retained: e.Prop.Retained,
			Unit:     e.Prop.Unit,
		}
		if st, ok := dev.Properties.State(e.Pointer()); ok {
			ps.Value = valueString(st.Value)
			ps.Target = valueString(st.Target)
		}
		s.Properties = append(s.Properties, ps)
	}
	return s
}

func valueString(v homie5.Value) string {
	if v == nil {
		return ""
	}
	return v.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// printDevices writes one row per device followed by a row per property.
func printDevices(w io.Writer, devices []controller.Device) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DEVICE\tSTATE\tPROPERTY\tVALUE\tTARGET\tFLAGS")
	for _, dev := range devices {
		s := summarize(dev)
		name := s.Device
		if s.Name != "" {
			name += " (" + s.Name + ")"
		}
		fmt.Fprintf(tw, "%s\t%s\t\t\t\t\n", name, s.State)
		for _, p := range s.Properties {
			value := orDash(p.Value)
			if p.Value != "" && p.Unit != "" {
				value += " " + p.Unit
			}
			fmt.Fprintf(tw, "\t\t%s\t%s\t%s\t%s\n", p.Property, value, orDash(p.Target), flags(p))
		}
		for _, id := range slices.Sorted(maps.Keys(s.Alerts)) {
			fmt.Fprintf(tw, "\t\t$alert/%s\t%s\t\t\n", id, s.Alerts[id])
		}
	}
	return tw.Flush()
}

func flags(p propertySummary) string {
	var f []string
	if p.Settable {
		f = append(f, "settable")
	}
	if !p.Retained {
		f = append(f, "non-retained")
	}
	return strings.Join(f, ",")
}

func printDevicesJSON(w io.Writer, devices []controller.Device) error {
	out := make([]deviceSummary, 0, len(devices))
	for _, dev := range devices {
		out = append(out, summarize(dev))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func (g *globalOptions) print(w io.Writer, devices []controller.Device) error {
	if g.jsonOutput {
		return printDevicesJSON(w, devices)
	}
	return printDevices(w, devices)
}

// parseDevice parses a device id in the given domain.
func parseDevice(domain homie5.HomieDomain, s string) (homie5.DeviceRef, error) {
	if domain.IsAll() {
		return homie5.DeviceRef{}, fmt.Errorf("a concrete domain is required to address %q", s)
	}
	id, err := homie5.NewHomieID(s)
	if err != nil {
		return homie5.DeviceRef{}, err
	}
	return homie5.NewDeviceRef(domain, id), nil
}

// parseProperty parses a device/node/property path in the given domain.
func parseProperty(domain homie5.HomieDomain, path string) (homie5.PropertyRef, error) {
	parts := strings.Split(path, "/")
	if len(parts) != 3 {
		return homie5.PropertyRef{}, fmt.Errorf("property %q: want device/node/property", path)
	}
	dev, err := parseDevice(domain, parts[0])
	if err != nil {
		return homie5.PropertyRef{}, err
	}
	node, err := homie5.NewHomieID(parts[1])
	if err != nil {
		return homie5.PropertyRef{}, fmt.Errorf("node: %w", err)
	}
	prop, err := homie5.NewHomieID(parts[2])
	if err != nil {
		return homie5.PropertyRef{}, fmt.Errorf("property: %w", err)
	}
	return homie5.PropertyRefFromNode(homie5.NodeRefFromDevice(dev, node), prop), nil
}
