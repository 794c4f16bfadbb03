// Copyright 2021-2022
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package messenger

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/penny-vault/pv-nav/common"
	"github.com/penny-vault/pv-nav/portfolio"
)

const DefaultSubject = "nav.series.updated"

// Publisher is the part of nats.JetStreamContext used to announce updates
type Publisher interface {
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// SeriesUpdated is the message published after a run saved new rows
type SeriesUpdated struct {
	RunID          string            `json:"run_id"`
	StartDate      string            `json:"start_date"`
	EndDate        string            `json:"end_date"`
	IsContinuation bool              `json:"is_continuation"`
	Computed       map[string]int    `json:"computed"`
	LatestDate     string            `json:"latest_date,omitempty"`
	Latest         map[string]string `json:"latest,omitempty"`
	PublishTime    string            `json:"publish_time"`
}

// SeriesNotifier announces persisted runs on a JetStream subject
type SeriesNotifier struct {
	Subject   string
	publisher Publisher
	now       func() time.Time
}

// NewSeriesNotifier returns a notifier that publishes on the JetStream
// context opened by Initialize
func NewSeriesNotifier() (*SeriesNotifier, error) {
	if jetStream == nil {
		return nil, ErrNotConnected
	}
	return NewSeriesNotifierWithPublisher(jetStream, viper.GetString("nats.subject")), nil
}

func NewSeriesNotifierWithPublisher(publisher Publisher, subject string) *SeriesNotifier {
	if subject == "" {
		subject = DefaultSubject
	}
	return &SeriesNotifier{
		Subject:   subject,
		publisher: publisher,
		now:       time.Now,
	}
}

// NewSeriesUpdated builds the message for result
func NewSeriesUpdated(result *portfolio.Result, now time.Time) *SeriesUpdated {
	msg := &SeriesUpdated{
		RunID:          result.RunID.String(),
		StartDate:      result.StartDate.Format(common.DateFormat),
		EndDate:        result.EndDate.Format(common.DateFormat),
		IsContinuation: result.IsContinuation,
		Computed:       result.Computed,
		PublishTime:    now.Format(time.RFC3339),
	}

	if last := result.Series.Last(); last != nil {
		msg.LatestDate = last.Date.Format(common.DateFormat)
		msg.Latest = make(map[string]string, len(last.Values))
		for k, v := range last.Values {
			msg.Latest[k] = v.StringFixed(portfolio.OutputPlaces)
		}
	}

	return msg
}

// SeriesUpdated publishes a SeriesUpdated message for result
func (sn *SeriesNotifier) SeriesUpdated(ctx context.Context, result *portfolio.Result) error {
	msg := NewSeriesUpdated(result, sn.now())
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Msg("could not serialize series update to JSON")
		return err
	}

	if _, err := sn.publisher.Publish(sn.Subject, payload, nats.Context(ctx), nats.MsgId(msg.RunID)); err != nil {
		log.Error().Err(err).Str("Subject", sn.Subject).Str("RunID", msg.RunID).Msg("could not publish series update")
		return err
	}

	log.Info().Str("Subject", sn.Subject).Str("RunID", msg.RunID).Msg("published series update")
	return nil
}
