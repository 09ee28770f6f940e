package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefix is the root of every controlhub topic.
//
//	controlhub/system/status                      retained presence (LWT)
//	controlhub/controller/{id}/config             backend: controller changed
//	controlhub/controller/{id}/rules/changed      core: rule edited via API
//	controlhub/controller/{id}/dashboard/updated  core: layout saved
const TopicPrefix = "controlhub"

// Topics builds controlhub topic strings.
type Topics struct{}

// SystemStatus is the retained online/offline topic.
func (Topics) SystemStatus() string {
	return TopicPrefix + "/system/status"
}

// ControllerConfig is where the backend announces that a controller's
// hardware or rules changed outside controlhub.
func (Topics) ControllerConfig(controllerID string) string {
	return fmt.Sprintf("%s/controller/%s/config", TopicPrefix, controllerID)
}

// AllControllerConfigs matches ControllerConfig for every controller.
func (Topics) AllControllerConfigs() string {
	return TopicPrefix + "/controller/+/config"
}

// ParseControllerTopic splits "controlhub/controller/{id}/{rest...}" into
// the controller ID and the remaining path ("config", "rules/changed").
func ParseControllerTopic(topic string) (controllerID, leaf string, err error) {
	rest, ok := strings.CutPrefix(topic, TopicPrefix+"/controller/")
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidTopicName, topic)
	}
	controllerID, leaf, ok = strings.Cut(rest, "/")
	if !ok || controllerID == "" || leaf == "" || strings.ContainsAny(controllerID, "+#") {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidTopicName, topic)
	}
	return controllerID, leaf, nil
}
