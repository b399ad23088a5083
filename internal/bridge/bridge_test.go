package bridge

import (
	"sync"

	"github.com/banshee-data/racecar-sim/internal/lidar"
	"github.com/banshee-data/racecar-sim/internal/monitoring"
)

func init() {
	monitoring.SetLogger(nil)
}

// fakeSource is a Hokuyo scan with a wall 2m ahead and nothing elsewhere.
type fakeSource struct {
	profile lidar.SensorProfile
	buf     lidar.SliceReader
	cursor  int
}

func newFakeSource() *fakeSource {
	p := lidar.HokuyoUST10LX()
	buf := make(lidar.SliceReader, p.NumSamples)
	for i := p.ForwardIndex() - 20; i <= p.ForwardIndex()+20; i++ {
		buf[i] = 200
	}
	return &fakeSource{profile: p, buf: buf, cursor: 77}
}

func (f *fakeSource) Profile() lidar.SensorProfile { return f.profile }
func (f *fakeSource) Buffer() lidar.Reader          { return f.buf }
func (f *fakeSource) Cursor() int                   { return f.cursor }

type fakeRealism struct {
	mu sync.Mutex
	on bool
}

func (f *fakeRealism) Realism() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.on
}

func (f *fakeRealism) SetRealism(on bool) {
	f.mu.Lock()
	f.on = on
	f.mu.Unlock()
}
