// Package canbus defines the VCU's frame codec and socketcan transport.
// Sensor boards broadcast raw transducer readings (pedal voltages, wheel
// tick frequencies) on IDs based at 0x500; the VCU answers with a torque
// command frame for the motor controller. Signals are packed little
// endian with fixed scale factors, small enough that a DBC toolchain
// would be overkill.
package canbus

import (
	"fmt"

	"go.einride.tech/can"

	"github.com/torqlabs/vcu/pkg/throttle"
)

// Frame IDs. Sensor messages start at the 0x500 base; the torque command
// lives above the sensor block.
const (
	ThrottleFrameID uint32 = 0x500
	BrakeFrameID    uint32 = 0x501
	WheelFrameID    uint32 = 0x503
	TorqueFrameID   uint32 = 0x5A0
)

// Signal scale factors.
const (
	voltScale = 0.001 // volts per bit, raw uint16
	freqScale = 0.1   // Hz per bit, raw uint16
	fracScale = 1e-4  // throttle fraction per bit, raw uint16
)

// Fault mask bits carried in the torque command so the motor controller
// and dash can tell why torque was cut.
const (
	MaskOutOfRange uint8 = 1 << iota
	MaskUncalibrated
	MaskDiscrepancy
	MaskDegenerateCalibration
)

func putU16(f *can.Frame, at int, raw uint16) {
	f.Data[at] = byte(raw)
	f.Data[at+1] = byte(raw >> 8)
}

func getU16(f can.Frame, at int) uint16 {
	return uint16(f.Data[at]) | uint16(f.Data[at+1])<<8
}

func packScaled(v, scale float64) uint16 {
	raw := v / scale
	if raw < 0 {
		return 0
	}
	if raw > 65535 {
		return 65535
	}
	return uint16(raw + 0.5)
}

// EncodeThrottle packs both throttle sensor voltages.
func EncodeThrottle(v0, v1 float64) can.Frame {
	f := can.Frame{ID: ThrottleFrameID, Length: 4}
	putU16(&f, 0, packScaled(v0, voltScale))
	putU16(&f, 2, packScaled(v1, voltScale))
	return f
}

// DecodeThrottle unpacks both throttle sensor voltages.
func DecodeThrottle(f can.Frame) (v0, v1 float64, err error) {
	if f.ID != ThrottleFrameID {
		return 0, 0, fmt.Errorf("frame 0x%X is not a throttle frame", f.ID)
	}
	if f.Length < 4 {
		return 0, 0, fmt.Errorf("throttle frame needs 4 bytes, got %d", f.Length)
	}
	return float64(getU16(f, 0)) * voltScale, float64(getU16(f, 2)) * voltScale, nil
}

// EncodeBrake packs the brake pressure sensor voltage.
func EncodeBrake(v float64) can.Frame {
	f := can.Frame{ID: BrakeFrameID, Length: 2}
	putU16(&f, 0, packScaled(v, voltScale))
	return f
}

// DecodeBrake unpacks the brake pressure sensor voltage.
func DecodeBrake(f can.Frame) (float64, error) {
	if f.ID != BrakeFrameID {
		return 0, fmt.Errorf("frame 0x%X is not a brake frame", f.ID)
	}
	if f.Length < 2 {
		return 0, fmt.Errorf("brake frame needs 2 bytes, got %d", f.Length)
	}
	return float64(getU16(f, 0)) * voltScale, nil
}

// EncodeWheelSpeeds packs the four wheel tick frequencies (Hz), order
// FL, FR, RL, RR.
func EncodeWheelSpeeds(hz [4]float64) can.Frame {
	f := can.Frame{ID: WheelFrameID, Length: 8}
	for i, v := range hz {
		putU16(&f, i*2, packScaled(v, freqScale))
	}
	return f
}

// DecodeWheelSpeeds unpacks the four wheel tick frequencies.
func DecodeWheelSpeeds(f can.Frame) ([4]float64, error) {
	var hz [4]float64
	if f.ID != WheelFrameID {
		return hz, fmt.Errorf("frame 0x%X is not a wheel speed frame", f.ID)
	}
	if f.Length < 8 {
		return hz, fmt.Errorf("wheel speed frame needs 8 bytes, got %d", f.Length)
	}
	for i := range hz {
		hz[i] = float64(getU16(f, i*2)) * freqScale
	}
	return hz, nil
}

// FaultMask flattens a result's faults into the torque command bitmask.
func FaultMask(faults []throttle.Fault) uint8 {
	var mask uint8
	for _, f := range faults {
		switch f.Kind {
		case throttle.FaultOutOfRange:
			mask |= MaskOutOfRange
		case throttle.FaultUncalibrated:
			mask |= MaskUncalibrated
		case throttle.FaultDiscrepancy:
			mask |= MaskDiscrepancy
		case throttle.FaultDegenerateCalibration:
			mask |= MaskDegenerateCalibration
		}
	}
	return mask
}

// EncodeTorqueCommand packs the validated throttle fraction and the fault
// mask for the motor controller. With any fault bit set the fraction is
// the fail-safe value and the MCU must not apply torque.
func EncodeTorqueCommand(fraction float64, mask uint8) can.Frame {
	f := can.Frame{ID: TorqueFrameID, Length: 3}
	putU16(&f, 0, packScaled(fraction, fracScale))
	f.Data[2] = mask
	return f
}

// DecodeTorqueCommand unpacks a torque command frame.
func DecodeTorqueCommand(f can.Frame) (fraction float64, mask uint8, err error) {
	if f.ID != TorqueFrameID {
		return 0, 0, fmt.Errorf("frame 0x%X is not a torque command", f.ID)
	}
	if f.Length < 3 {
		return 0, 0, fmt.Errorf("torque command needs 3 bytes, got %d", f.Length)
	}
	return float64(getU16(f, 0)) * fracScale, f.Data[2], nil
}
