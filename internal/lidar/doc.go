// Package lidar simulates a continuously rotating 2D range sensor.
//
// Responsibilities: converting per-tick elapsed time into discrete angular
// samples (RotationScheduler), taking each sample as a single range query with
// the device's error and clamping rules (SampleEngine), and holding the
// results in a fixed circular buffer indexed by angle (SampleBuffer).
// Key types: SensorProfile, Sensor, Span, Reader.
//
// One goroutine ticks a Sensor; any number of consumers read its buffer
// concurrently. Reads are per-slot atomic, so a consumer sees a rolling
// snapshot rather than one coherent rotation. A complete 360° picture is only
// guaranteed once a full rotation period has passed since the last read.
//
// Slot i has index angle i*360/NumSamples and heading
// IndexAngle(i) - StartAngleOffset, with heading 0 straight ahead and positive
// headings clockwise seen from above.
package lidar
