// INSPECTOR, Infrastructure Inspection Platform
// Copyright (C) 2023-2024 OpsMind Co., Ltd.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version. For any non-GPL usage of Inspector,
// one or multiple Commercial Licenses authorized by OpsMind Co., Ltd.
// must be obtained first.

// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.

// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package notifier

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// sendTimeout bounds a single channel delivery.
const sendTimeout = 30 * time.Second

//Manager fans a message out to every configured channel. A failing
//channel is logged and never blocks the others.
type Manager struct {
	channels []Channel
	workers  int
}

//NewManager NewManager
func NewManager(channels ...Channel) *Manager {
	return &Manager{
		channels: channels,
		workers:  3,
	}
}

//AddChannel AddChannel
func (m *Manager) AddChannel(channel Channel) {
	m.channels = append(m.channels, channel)
}

//ChannelCount ChannelCount
func (m *Manager) ChannelCount() int {
	return len(m.channels)
}

//NotifyAll deliver the message to all channels concurrently. Always
//returns nil, failures are logged per channel.
func (m *Manager) NotifyAll(ctx context.Context, message string) {
	if len(m.channels) == 0 || message == "" {
		return
	}
	eg := errgroup.Group{}
	eg.SetLimit(m.workers)
	for _, channel := range m.channels {
		channel := channel
		eg.Go(func() error {
			sctx, cancel := context.WithTimeout(ctx, sendTimeout)
			defer cancel()
			if err := channel.Send(sctx, message); err != nil {
				logrus.Errorf("notify channel %s error %s", channel.Name(), err.Error())
			}
			return nil
		})
	}
	eg.Wait()
}
