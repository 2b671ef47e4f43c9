// Package audio finds microphones on the Pulse server and records from them:
// the query capture stream, an analysis tap for voice activity, and WAV
// packaging of the result.
package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

// Device is one Pulse input source.
type Device struct {
	ID          string
	Description string
	State       string
	Available   bool
	Muted       bool
	Default     bool
}

// problem names why the device cannot be recorded from, or "" when it can.
func (d Device) problem() string {
	switch {
	case d.Muted:
		return "muted"
	case !d.Available:
		return "unavailable"
	default:
		return ""
	}
}

// Selection is the device a recording will use. Warning is set when the
// configured input was unusable and the fallback was taken.
type Selection struct {
	Device   Device
	Warning  string
	Fallback bool
}

// newClient opens a Pulse connection tagged with the voxsearch application name.
func newClient() (*pulse.Client, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName(appName),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: connect pulse server: %v", ErrNoDevice, err)
	}
	return client, nil
}

// ListDevices returns the server's input sources.
func ListDevices(_ context.Context) ([]Device, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	defaultSource, err := client.DefaultSource()
	if err != nil {
		return nil, fmt.Errorf("read default source: %w", err)
	}

	var sources pulseproto.GetSourceInfoListReply
	if err := client.RawRequest(&pulseproto.GetSourceInfoList{}, &sources); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	devices := make([]Device, 0, len(sources))
	for _, source := range sources {
		if source == nil {
			continue
		}
		devices = append(devices, Device{
			ID:          source.SourceName,
			Description: source.Device,
			State:       sourceState(source.State),
			Available:   activePortAvailable(source),
			Muted:       source.Mute,
			Default:     source.SourceName == defaultSource.ID(),
		})
	}
	return devices, nil
}

// SelectDevice picks the device for a recording from the audio.input and
// audio.fallback preferences.
func SelectDevice(ctx context.Context, input string, fallback string) (Selection, error) {
	devices, err := ListDevices(ctx)
	if err != nil {
		return Selection{}, err
	}
	return selectDeviceFromList(devices, input, fallback)
}

func selectDeviceFromList(devices []Device, input string, fallback string) (Selection, error) {
	if len(devices) == 0 {
		return Selection{}, fmt.Errorf("%w: no audio input devices found", ErrNoDevice)
	}

	primary, err := resolveDevice(devices, input)
	if err != nil {
		return Selection{}, fmt.Errorf("audio.input: %w", err)
	}
	problem := primary.problem()
	if problem == "" {
		return Selection{Device: primary}, nil
	}

	backup, err := resolveDevice(devices, fallback)
	if err != nil {
		return Selection{}, fmt.Errorf("input %q is %s and audio.fallback: %w", primary.ID, problem, err)
	}
	if backupProblem := backup.problem(); backupProblem != "" {
		return Selection{}, fmt.Errorf("input %q is %s and fallback %q is %s", primary.ID, problem, backup.ID, backupProblem)
	}

	return Selection{
		Device:   backup,
		Warning:  fmt.Sprintf("audio.input %q is %s; falling back to %q", primary.ID, problem, backup.ID),
		Fallback: primary.ID != backup.ID,
	}, nil
}

// resolveDevice finds the first device matching term. An empty term or
// "default" means the server's default source.
func resolveDevice(devices []Device, term string) (Device, error) {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" || term == "default" {
		for _, d := range devices {
			if d.Default {
				return d, nil
			}
		}
		return Device{}, errors.New("default audio source is unavailable")
	}
	for _, d := range devices {
		if deviceMatches(d, term) {
			return d, nil
		}
	}
	return Device{}, fmt.Errorf("%q did not match any device", term)
}

// deviceMatches reports whether a lower-case term occurs in the device id or
// description.
func deviceMatches(device Device, term string) bool {
	return term != "" &&
		(strings.Contains(strings.ToLower(device.ID), term) ||
			strings.Contains(strings.ToLower(device.Description), term))
}

var sourceStates = [...]string{"running", "idle", "suspended"}

func sourceState(state uint32) string {
	if int(state) < len(sourceStates) {
		return sourceStates[state]
	}
	return fmt.Sprintf("unknown(%d)", state)
}

// Pulse port availability values.
const (
	portAvailabilityUnknown = 0
	portAvailabilityYes     = 2
)

// activePortAvailable reports whether the source's active port can capture.
// Sources without ports are always usable.
func activePortAvailable(source *pulseproto.GetSourceInfoReply) bool {
	if source == nil {
		return false
	}
	for _, port := range source.Ports {
		if port.Name == source.ActivePortName {
			return port.Available == portAvailabilityUnknown || port.Available == portAvailabilityYes
		}
	}
	return true
}
