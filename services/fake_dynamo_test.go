package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"ripple_server/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeDynamo is an in-memory DynamoDBAPI with real semantics for the
// expressions this codebase issues: conditional updates fail with
// ConditionalCheckFailedException, set deletes reap empty sets, and
// transactions apply all-or-nothing. Every call holds one mutex, so each
// store operation is atomic exactly like a single-document DynamoDB write.
type fakeDynamo struct {
	mu               sync.Mutex
	tables           map[string]map[string]map[string]types.AttributeValue
	failTransactions bool
	calls            map[string]int
}

var fakeTableKeys = map[string][2]string{
	models.MessagesTable:            {"roomId", "messageId"},
	models.ThreadSubscriptionsTable: {"parentMessageId", "userId"},
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{
		tables: map[string]map[string]map[string]types.AttributeValue{
			models.MessagesTable:            {},
			models.ThreadSubscriptionsTable: {},
		},
		calls: map[string]int{},
	}
}

func (f *fakeDynamo) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeDynamo) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func attrString(av types.AttributeValue) string {
	if s, ok := av.(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func fakeItemKey(table string, item map[string]types.AttributeValue) string {
	keys := fakeTableKeys[table]
	return attrString(item[keys[0]]) + "\x00" + attrString(item[keys[1]])
}

func cloneAttr(av types.AttributeValue) types.AttributeValue {
	switch v := av.(type) {
	case *types.AttributeValueMemberSS:
		return &types.AttributeValueMemberSS{Value: append([]string(nil), v.Value...)}
	case *types.AttributeValueMemberL:
		out := make([]types.AttributeValue, len(v.Value))
		for i, e := range v.Value {
			out[i] = cloneAttr(e)
		}
		return &types.AttributeValueMemberL{Value: out}
	case *types.AttributeValueMemberM:
		return &types.AttributeValueMemberM{Value: cloneItem(v.Value)}
	default:
		return av
	}
}

func cloneItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	if item == nil {
		return nil
	}
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = cloneAttr(v)
	}
	return out
}

// resolvePath walks a dotted document path and returns the map holding the
// leaf attribute. Creating intermediate maps is never needed here: messages
// are stored with their reactions map present.
func resolvePath(item map[string]types.AttributeValue, path string) (map[string]types.AttributeValue, string, bool) {
	parts := strings.SplitN(path, ".", 2)
	if len(parts) == 1 {
		return item, parts[0], true
	}
	nested, ok := item[parts[0]].(*types.AttributeValueMemberM)
	if !ok {
		return nil, "", false
	}
	return resolvePath(nested.Value, parts[1])
}

func getPath(item map[string]types.AttributeValue, path string) (types.AttributeValue, bool) {
	container, leaf, ok := resolvePath(item, path)
	if !ok {
		return nil, false
	}
	av, exists := container[leaf]
	return av, exists
}

func substituteNames(expr string, names map[string]string) string {
	for placeholder, name := range names {
		expr = strings.ReplaceAll(expr, placeholder, name)
	}
	return expr
}

func evalCondition(item map[string]types.AttributeValue, cond string, values map[string]types.AttributeValue) (bool, error) {
	for _, term := range strings.Split(cond, " AND ") {
		term = strings.TrimSpace(term)
		negate := false
		if strings.HasPrefix(term, "NOT ") {
			negate = true
			term = strings.TrimPrefix(term, "NOT ")
		}

		var result bool
		switch {
		case strings.HasPrefix(term, "attribute_exists("):
			path := strings.TrimSuffix(strings.TrimPrefix(term, "attribute_exists("), ")")
			_, result = getPath(item, path)
		case strings.HasPrefix(term, "attribute_not_exists("):
			path := strings.TrimSuffix(strings.TrimPrefix(term, "attribute_not_exists("), ")")
			_, exists := getPath(item, path)
			result = !exists
		case strings.HasPrefix(term, "contains("):
			inner := strings.TrimSuffix(strings.TrimPrefix(term, "contains("), ")")
			parts := strings.SplitN(inner, ",", 2)
			path := strings.TrimSpace(parts[0])
			operand := attrString(values[strings.TrimSpace(parts[1])])
			if av, exists := getPath(item, path); exists {
				if set, ok := av.(*types.AttributeValueMemberSS); ok {
					for _, member := range set.Value {
						if member == operand {
							result = true
							break
						}
					}
				}
			}
		case strings.Contains(term, " > "), strings.Contains(term, " = "):
			op := " = "
			if strings.Contains(term, " > ") {
				op = " > "
			}
			parts := strings.SplitN(term, op, 2)
			lhs, lhsOK := conditionOperand(item, strings.TrimSpace(parts[0]))
			operand, rhsOK := values[strings.TrimSpace(parts[1])].(*types.AttributeValueMemberN)
			if lhsOK && rhsOK {
				rhs, _ := strconv.Atoi(operand.Value)
				if op == " > " {
					result = lhs > rhs
				} else {
					result = lhs == rhs
				}
			}
		default:
			return false, fmt.Errorf("fake dynamo: unsupported condition term %q", term)
		}

		if negate {
			result = !result
		}
		if !result {
			return false, nil
		}
	}
	return true, nil
}

// conditionOperand resolves the numeric left side of a comparison term:
// either size(path) or a number attribute at path.
func conditionOperand(item map[string]types.AttributeValue, expr string) (int, bool) {
	if strings.HasPrefix(expr, "size(") {
		path := strings.TrimSuffix(strings.TrimPrefix(expr, "size("), ")")
		av, exists := getPath(item, path)
		if !exists {
			return 0, false
		}
		switch v := av.(type) {
		case *types.AttributeValueMemberM:
			return len(v.Value), true
		case *types.AttributeValueMemberL:
			return len(v.Value), true
		case *types.AttributeValueMemberSS:
			return len(v.Value), true
		case *types.AttributeValueMemberS:
			return len(v.Value), true
		}
		return 0, false
	}
	av, exists := getPath(item, expr)
	if !exists {
		return 0, false
	}
	current, ok := av.(*types.AttributeValueMemberN)
	if !ok {
		return 0, false
	}
	value, err := strconv.Atoi(current.Value)
	if err != nil {
		return 0, false
	}
	return value, true
}

func applyUpdate(item map[string]types.AttributeValue, expr string, values map[string]types.AttributeValue) error {
	tokens := strings.Fields(expr)
	for i := 0; i < len(tokens); {
		switch tokens[i] {
		case "SET":
			// SET path = :value
			container, leaf, ok := resolvePath(item, tokens[i+1])
			if !ok {
				return fmt.Errorf("fake dynamo: invalid document path %q", tokens[i+1])
			}
			container[leaf] = cloneAttr(values[tokens[i+3]])
			i += 4
		case "ADD":
			// ADD path :value; like the real store, only top-level attributes
			if strings.Contains(tokens[i+1], ".") {
				return fmt.Errorf("fake dynamo: ADD action is not valid on nested path %q", tokens[i+1])
			}
			container, leaf, ok := resolvePath(item, tokens[i+1])
			if !ok {
				return fmt.Errorf("fake dynamo: invalid document path %q", tokens[i+1])
			}
			switch operand := values[tokens[i+2]].(type) {
			case *types.AttributeValueMemberSS:
				existing, _ := container[leaf].(*types.AttributeValueMemberSS)
				merged := []string{}
				if existing != nil {
					merged = append(merged, existing.Value...)
				}
				for _, member := range operand.Value {
					found := false
					for _, have := range merged {
						if have == member {
							found = true
							break
						}
					}
					if !found {
						merged = append(merged, member)
					}
				}
				container[leaf] = &types.AttributeValueMemberSS{Value: merged}
			case *types.AttributeValueMemberN:
				current := 0
				if existing, ok := container[leaf].(*types.AttributeValueMemberN); ok {
					current, _ = strconv.Atoi(existing.Value)
				}
				delta, _ := strconv.Atoi(operand.Value)
				container[leaf] = &types.AttributeValueMemberN{Value: strconv.Itoa(current + delta)}
			default:
				return fmt.Errorf("fake dynamo: unsupported ADD operand for %q", tokens[i+1])
			}
			i += 3
		case "DELETE":
			// DELETE path :value; like the real store, only top-level attributes
			if strings.Contains(tokens[i+1], ".") {
				return fmt.Errorf("fake dynamo: DELETE action is not valid on nested path %q", tokens[i+1])
			}
			container, leaf, ok := resolvePath(item, tokens[i+1])
			if !ok {
				return fmt.Errorf("fake dynamo: invalid document path %q", tokens[i+1])
			}
			operand, okOperand := values[tokens[i+2]].(*types.AttributeValueMemberSS)
			existing, okExisting := container[leaf].(*types.AttributeValueMemberSS)
			if okOperand && okExisting {
				remaining := []string{}
				for _, member := range existing.Value {
					drop := false
					for _, target := range operand.Value {
						if member == target {
							drop = true
							break
						}
					}
					if !drop {
						remaining = append(remaining, member)
					}
				}
				if len(remaining) == 0 {
					delete(container, leaf)
				} else {
					container[leaf] = &types.AttributeValueMemberSS{Value: remaining}
				}
			}
			i += 3
		case "REMOVE":
			// REMOVE path; valid on nested document paths
			container, leaf, ok := resolvePath(item, tokens[i+1])
			if !ok {
				return fmt.Errorf("fake dynamo: invalid document path %q", tokens[i+1])
			}
			delete(container, leaf)
			i += 2
		default:
			return fmt.Errorf("fake dynamo: unsupported update token %q", tokens[i])
		}
	}
	return nil
}

func (f *fakeDynamo) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["GetItem"]++
	item := f.tables[*params.TableName][fakeItemKey(*params.TableName, params.Key)]
	return &dynamodb.GetItemOutput{Item: cloneItem(item)}, nil
}

func (f *fakeDynamo) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["PutItem"]++
	f.tables[*params.TableName][fakeItemKey(*params.TableName, params.Item)] = cloneItem(params.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["DeleteItem"]++
	delete(f.tables[*params.TableName], fakeItemKey(*params.TableName, params.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeDynamo) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["UpdateItem"]++

	table := *params.TableName
	key := fakeItemKey(table, params.Key)
	item := f.tables[table][key]

	expr := substituteNames(*params.UpdateExpression, params.ExpressionAttributeNames)
	if params.ConditionExpression != nil {
		cond := substituteNames(*params.ConditionExpression, params.ExpressionAttributeNames)
		target := item
		if target == nil {
			target = map[string]types.AttributeValue{}
		}
		ok, err := evalCondition(target, cond, params.ExpressionAttributeValues)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
		}
	}

	if item == nil {
		item = cloneItem(params.Key)
	}
	if err := applyUpdate(item, expr, params.ExpressionAttributeValues); err != nil {
		return nil, err
	}
	f.tables[table][key] = item
	return &dynamodb.UpdateItemOutput{Attributes: cloneItem(item)}, nil
}

func (f *fakeDynamo) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["Query"]++

	condition := substituteNames(*params.KeyConditionExpression, params.ExpressionAttributeNames)
	parts := strings.SplitN(condition, " = ", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("fake dynamo: unsupported key condition %q", condition)
	}
	partitionAttr := strings.TrimSpace(parts[0])
	partitionValue := attrString(params.ExpressionAttributeValues[strings.TrimSpace(parts[1])])

	sortAttr := fakeTableKeys[*params.TableName][1]
	if params.IndexName != nil && *params.IndexName == models.ParentMessageIndex {
		sortAttr = "messageId"
	}

	var matched []map[string]types.AttributeValue
	for _, item := range f.tables[*params.TableName] {
		if attrString(item[partitionAttr]) == partitionValue {
			matched = append(matched, cloneItem(item))
		}
	}
	ascending := params.ScanIndexForward == nil || *params.ScanIndexForward
	sort.Slice(matched, func(i, j int) bool {
		less := attrString(matched[i][sortAttr]) < attrString(matched[j][sortAttr])
		if ascending {
			return less
		}
		return !less
	})

	if len(params.ExclusiveStartKey) > 0 {
		resumeAfter := attrString(params.ExclusiveStartKey[sortAttr])
		var remaining []map[string]types.AttributeValue
		for _, item := range matched {
			sortValue := attrString(item[sortAttr])
			if (ascending && sortValue > resumeAfter) || (!ascending && sortValue < resumeAfter) {
				remaining = append(remaining, item)
			}
		}
		matched = remaining
	}

	var lastEvaluatedKey map[string]types.AttributeValue
	if params.Limit != nil && len(matched) >= int(*params.Limit) && len(matched) > 0 {
		matched = matched[:int(*params.Limit)]
		// The store reports a resume key whenever the limit stopped the scan,
		// even when nothing follows.
		keys := fakeTableKeys[*params.TableName]
		last := matched[len(matched)-1]
		lastEvaluatedKey = map[string]types.AttributeValue{
			keys[0]: last[keys[0]],
			keys[1]: last[keys[1]],
		}
		if _, ok := last[partitionAttr]; ok {
			lastEvaluatedKey[partitionAttr] = last[partitionAttr]
		}
	}
	return &dynamodb.QueryOutput{Items: matched, Count: int32(len(matched)), LastEvaluatedKey: lastEvaluatedKey}, nil
}

func (f *fakeDynamo) TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["TransactWriteItems"]++

	if f.failTransactions {
		return nil, errors.New("transaction canceled: simulated store failure")
	}

	// Validate every condition before applying anything.
	for _, entry := range params.TransactItems {
		switch {
		case entry.Put != nil:
			if entry.Put.ConditionExpression == nil {
				continue
			}
			existing := f.tables[*entry.Put.TableName][fakeItemKey(*entry.Put.TableName, entry.Put.Item)]
			if existing == nil {
				existing = map[string]types.AttributeValue{}
			}
			cond := substituteNames(*entry.Put.ConditionExpression, entry.Put.ExpressionAttributeNames)
			ok, err := evalCondition(existing, cond, entry.Put.ExpressionAttributeValues)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, &types.TransactionCanceledException{Message: aws.String("ConditionalCheckFailed")}
			}
		case entry.Update != nil:
			item := f.tables[*entry.Update.TableName][fakeItemKey(*entry.Update.TableName, entry.Update.Key)]
			if item == nil {
				item = map[string]types.AttributeValue{}
			}
			if entry.Update.ConditionExpression == nil {
				continue
			}
			cond := substituteNames(*entry.Update.ConditionExpression, entry.Update.ExpressionAttributeNames)
			ok, err := evalCondition(item, cond, entry.Update.ExpressionAttributeValues)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, &types.TransactionCanceledException{Message: aws.String("ConditionalCheckFailed")}
			}
		}
	}

	for _, entry := range params.TransactItems {
		switch {
		case entry.Put != nil:
			table := *entry.Put.TableName
			f.tables[table][fakeItemKey(table, entry.Put.Item)] = cloneItem(entry.Put.Item)
		case entry.Update != nil:
			table := *entry.Update.TableName
			key := fakeItemKey(table, entry.Update.Key)
			item := f.tables[table][key]
			if item == nil {
				item = cloneItem(entry.Update.Key)
			}
			expr := substituteNames(*entry.Update.UpdateExpression, entry.Update.ExpressionAttributeNames)
			if err := applyUpdate(item, expr, entry.Update.ExpressionAttributeValues); err != nil {
				return nil, err
			}
			f.tables[table][key] = item
		}
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}
