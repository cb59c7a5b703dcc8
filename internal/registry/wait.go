package registry

import (
	"context"
	"time"

	"github.com/micro-manager/micro-manager-sub007/internal/errorcodes"
	"github.com/micro-manager/micro-manager-sub007/pkg/mmdevice"
)

// WaitForDevice polls the device at label until it is no longer busy. It
// fails with ErrDevicePollingTimeout once the registry timeout elapses and
// returns ctx.Err() when ctx is done first.
func (r *Registry) WaitForDevice(ctx context.Context, label string) error {
	inst, err := r.GetDevice(label)
	if err != nil {
		return err
	}

	deadline := time.NewTimer(r.timeout)
	defer deadline.Stop()
	tick := time.NewTicker(r.pollingInterval)
	defer tick.Stop()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		busy, err := inst.Busy()
		if err != nil {
			return err
		}
		if !busy {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return errorcodes.New(errorcodes.ErrDevicePollingTimeout,
				"device %q still busy after %s", label, r.timeout)
		case <-tick.C:
		}
	}
}

// WaitForDeviceType waits for every loaded device of type typ in turn.
func (r *Registry) WaitForDeviceType(ctx context.Context, typ mmdevice.DeviceType) error {
	for _, label := range r.GetDeviceList(typ) {
		if err := r.WaitForDevice(ctx, label); err != nil {
			return err
		}
	}

	return nil
}
