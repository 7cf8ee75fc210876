package execution

import "time"

func timeFromUnix(ts int64) time.Time {
	return time.Unix(ts, 0).UTC()
}
