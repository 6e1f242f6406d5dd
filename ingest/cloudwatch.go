package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/goccy/go-json"
	"github.com/jmespath/go-jmespath"
	"github.com/rs/zerolog/log"
)

// LogsClient is the subset of the CloudWatch Logs API used to pull events.
type LogsClient interface {
	FilterLogEvents(ctx context.Context, params *cloudwatchlogs.FilterLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.FilterLogEventsOutput, error)
}

// CloudWatchSource pulls access-log lines from CloudWatch Logs groups.
// Each group keeps its own window so a cycle only sees events newer than
// the previous successful fetch.
type CloudWatchSource struct {
	client      LogsClient
	groups      []string
	filter      string
	messagePath *jmespath.JMESPath
	lookback    time.Duration

	// Now is the clock used for window bounds.
	Now func() time.Time

	next map[string]int64 // group -> start of the next window, epoch ms
}

// CloudWatchOptions configures a CloudWatchSource.
type CloudWatchOptions struct {
	Groups      []string
	Filter      string
	MessagePath string // JMESPath applied to JSON messages; empty uses the raw message
	Lookback    time.Duration
}

func NewCloudWatchSource(client LogsClient, opts CloudWatchOptions) (*CloudWatchSource, error) {
	if len(opts.Groups) == 0 {
		return nil, fmt.Errorf("cloudwatch: no log groups")
	}
	src := &CloudWatchSource{
		client:   client,
		groups:   opts.Groups,
		filter:   opts.Filter,
		lookback: opts.Lookback,
		Now:      time.Now,
		next:     make(map[string]int64, len(opts.Groups)),
	}
	if opts.MessagePath != "" {
		compiled, err := jmespath.Compile(opts.MessagePath)
		if err != nil {
			return nil, fmt.Errorf("cloudwatch: message path %q: %w", opts.MessagePath, err)
		}
		src.messagePath = compiled
	}
	return src, nil
}

// Fetch returns the lines logged since the previous call, group by group in
// configuration order. A failing group aborts the fetch and keeps its window.
func (s *CloudWatchSource) Fetch(ctx context.Context) ([]string, error) {
	endMs := s.Now().UnixMilli()
	var lines []string
	for _, group := range s.groups {
		startMs, ok := s.next[group]
		if !ok {
			startMs = endMs - s.lookback.Milliseconds()
		}
		if startMs > endMs {
			continue
		}
		groupLines, err := s.fetchGroup(ctx, group, startMs, endMs)
		if err != nil {
			return nil, fmt.Errorf("cloudwatch fetch %s: %w", group, err)
		}
		lines = append(lines, groupLines...)
		s.next[group] = endMs + 1
		log.Debug().Str("group", group).Int("events", len(groupLines)).Msg("Fetched CloudWatch events")
	}
	return lines, nil
}

func (s *CloudWatchSource) fetchGroup(ctx context.Context, group string, startMs, endMs int64) ([]string, error) {
	var lines []string
	var next *string
	for {
		input := &cloudwatchlogs.FilterLogEventsInput{
			LogGroupName: aws.String(group),
			StartTime:    aws.Int64(startMs),
			EndTime:      aws.Int64(endMs),
			NextToken:    next,
		}
		if s.filter != "" {
			input.FilterPattern = aws.String(s.filter)
		}
		out, err := s.client.FilterLogEvents(ctx, input)
		if err != nil {
			return nil, err
		}
		for _, e := range out.Events {
			if e.Message == nil {
				continue
			}
			line, ok, err := s.extract(*e.Message)
			if err != nil {
				return nil, err
			}
			if ok {
				lines = append(lines, line)
			}
		}
		if out.NextToken == nil || (next != nil && aws.ToString(out.NextToken) == aws.ToString(next)) {
			break
		}
		next = out.NextToken
	}
	return lines, nil
}

// extract pulls the access-log line out of a raw event message. Messages
// that are not JSON are searched as {"message": raw}.
func (s *CloudWatchSource) extract(raw string) (string, bool, error) {
	if s.messagePath == nil {
		return raw, true, nil
	}
	var input any
	if err := json.Unmarshal([]byte(raw), &input); err != nil {
		input = map[string]any{"message": raw}
	}
	res, err := s.messagePath.Search(input)
	if err != nil {
		return "", false, fmt.Errorf("jmespath search: %w", err)
	}
	line, ok := res.(string)
	if !ok || line == "" {
		return "", false, nil
	}
	return line, true, nil
}
