package web

import "time"

// Clock supplies the timestamps the server stamps on reports and activities
type Clock interface {
	Now() time.Time
}

// RealClock uses the real time.Now
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// FakeClock returns a fixed time; tests can set NowTime to the desired value
type FakeClock struct {
	NowTime time.Time
}

func (f *FakeClock) Now() time.Time { return f.NowTime }
