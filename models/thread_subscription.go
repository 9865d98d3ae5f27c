package models

// ThreadSubscription marks a user as subscribed to a thread.
// Partition key: parentMessageId, Sort key: userId. The pair is unique by
// construction, so a repeated PutItem is an idempotent upsert.
type ThreadSubscription struct {
	ParentMessageID string `dynamodbav:"parentMessageId" json:"parentMessageId"`
	UserID          string `dynamodbav:"userId" json:"userId"`
	CreatedAt       string `dynamodbav:"createdAt" json:"createdAt"`
}

// ThreadSubscriptionsTable is the DynamoDB table name for thread subscriptions
const ThreadSubscriptionsTable = "ThreadSubscriptions"
