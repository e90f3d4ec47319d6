package touch

import (
	"errors"
	"time"
)

// Config holds the gesture thresholds. Distances are in world units.
type Config struct {
	MinTapDistance   float32       `yaml:"min_tap_distance"`
	DoubleTapWindow  time.Duration `yaml:"double_tap_window"`
	MinTouchDistance float32       `yaml:"min_touch_distance"`
	SwipeQueueSize   int           `yaml:"swipe_queue_size"`
	SwipeMinSpeed    float32       `yaml:"swipe_min_speed"` // units per second
	SwipeMaxTime     time.Duration `yaml:"swipe_max_time"`
}

func DefaultConfig() Config {
	return Config{
		MinTapDistance:   30,
		DoubleTapWindow:  100 * time.Millisecond,
		MinTouchDistance: 10,
		SwipeQueueSize:   4,
		SwipeMinSpeed:    800,
		SwipeMaxTime:     500 * time.Millisecond,
	}
}

func (c Config) Validate() error {
	if c.MinTouchDistance <= 0 {
		return errors.New("touch: min_touch_distance must be positive")
	}
	if c.SwipeQueueSize < 2 {
		return errors.New("touch: swipe_queue_size must be at least 2")
	}
	if c.DoubleTapWindow < 0 || c.SwipeMaxTime < 0 {
		return errors.New("touch: negative time window")
	}
	return nil
}
