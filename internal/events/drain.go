package events

import "time"

const defaultDrainTimeout = 10 * time.Second
