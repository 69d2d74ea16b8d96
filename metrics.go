package warden

import (
	"time"
)

type ResolveHook func(key Key, duration time.Duration, err error)

type MaterializeHook func(record SingletonRecord)

type ActionHook func(action string, duration time.Duration, err error)
