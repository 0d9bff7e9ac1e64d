package redis

import "fmt"

// KeyBuilder provides environment-aware Redis key building functionality
type KeyBuilder struct {
	prefix string // Environment prefix (staging/prod)
}

// NewKeyBuilder creates a new key builder with environment-based prefix
func NewKeyBuilder(environment string) *KeyBuilder {
	prefix := "prod"
	if environment == "development" || environment == "staging" {
		prefix = "staging"
	}

	return &KeyBuilder{prefix: prefix}
}

// BuildKey constructs a Redis key with the environment prefix
func (kb *KeyBuilder) BuildKey(key string) string {
	return fmt.Sprintf("%s:%s", kb.prefix, key)
}

// GetPrefix returns the current environment prefix
func (kb *KeyBuilder) GetPrefix() string {
	return kb.prefix
}

// Request workflow key builders

func (kb *KeyBuilder) KeyRequest(requestID string) string {
	return kb.BuildKey(fmt.Sprintf(KeyRequestByID, requestID))
}

func (kb *KeyBuilder) KeyRequestList(role string) string {
	return kb.BuildKey(fmt.Sprintf(KeyRequestList, role))
}

func (kb *KeyBuilder) KeyDecisionLock(requestID string) string {
	return kb.BuildKey(fmt.Sprintf(KeyDecisionLock, requestID))
}

// Task board key builders

func (kb *KeyBuilder) KeyBoard(groupID string, role string) string {
	return kb.BuildKey(fmt.Sprintf(KeyBoardSnapshot, groupID, role))
}

func (kb *KeyBuilder) KeyGroupMembers(groupID string) string {
	return kb.BuildKey(fmt.Sprintf(KeyGroupMembers, groupID))
}

// Identity key builders

func (kb *KeyBuilder) KeyActorProfile(userID string) string {
	return kb.BuildKey(fmt.Sprintf(KeyActorProfile, userID))
}

func (kb *KeyBuilder) KeyDeviceTokens(userID string) string {
	return kb.BuildKey(fmt.Sprintf(KeyDeviceTokens, userID))
}

// KeyCustom builds a key from a custom pattern
func (kb *KeyBuilder) KeyCustom(pattern string, args ...interface{}) string {
	key := fmt.Sprintf(pattern, args...)
	return kb.BuildKey(key)
}
