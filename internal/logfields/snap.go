package logfields

import "go.uber.org/zap"

func Snap(val string) zap.Field {
	return zap.String("snap.name", val)
}

func Architecture(val string) zap.Field {
	return zap.String("snap.architecture", val)
}

func Track(val string) zap.Field {
	return zap.String("snap.track", val)
}

func Channel(val string) zap.Field {
	return zap.String("snap.channel", val)
}

func Revision(val string) zap.Field {
	return zap.String("snap.revision", val)
}
