package sendability

import "github.com/jmehdipour/engage-dispatch/internal/model"

func PhoneChannel(channelType string) Predicate {
	return func(id model.ExternalID) bool {
		return id.Type == "phone" && id.ChannelType == channelType
	}
}

func Email() Predicate {
	return func(id model.ExternalID) bool {
		return id.Type == "email"
	}
}

var pushTypes = map[string]string{
	"ios.push_token":     "ios_push",
	"android.push_token": "android_push",
}

// PushDevice matches push tokens; an explicit channelType must agree with the
// token's platform.
func PushDevice() Predicate {
	return func(id model.ExternalID) bool {
		want, ok := pushTypes[id.Type]
		if !ok {
			return false
		}
		return id.ChannelType == "" || id.ChannelType == want
	}
}
