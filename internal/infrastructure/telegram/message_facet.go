package telegram

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"

	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/message/entities"
	"github.com/Conte777/NewsFlow/services/connector-service/internal/infrastructure/metrics"
	pkgerrors "github.com/Conte777/NewsFlow/services/connector-service/pkg/errors"
)

const (
	// AlbumBufferTimeout is the time to wait for all pushed album parts
	AlbumBufferTimeout = 500 * time.Millisecond

	maxFloodWait     = 30 * time.Second
	updatesQueueSize = 256
)

// MessageFacet reads from and writes to channels
type MessageFacet interface {
	ListenToChannels(ctx context.Context, channels []string) ([]ListenResult, error)
	UnlistenChannels(ctx context.Context, channels []string) error
	FetchMessages(ctx context.Context, channel string, limit int) ([]entities.Message, error)
	RepostMessage(ctx context.Context, messageID int, source, destination string) error
	SendMessage(ctx context.Context, destination, text string) error
	Updates() <-chan entities.Message
}

type resolvedChannel struct {
	input *tg.InputChannel
	title string
}

type pendingAlbum struct {
	items []entities.Message
	timer *time.Timer
}

type messageFacet struct {
	conn    Conn
	state   *authMachine
	limiter *rate.Limiter
	metrics *metrics.Metrics
	logger  zerolog.Logger

	mu         sync.RWMutex
	resolved   map[string]resolvedChannel
	subscribed map[int64]string

	updates  chan entities.Message
	albumMu  sync.Mutex
	albums   map[int64]*pendingAlbum
	closed   bool
	closedMu sync.RWMutex
}

func newMessageFacet(conn Conn, state *authMachine, limiter *rate.Limiter, m *metrics.Metrics, logger zerolog.Logger) *messageFacet {
	return &messageFacet{
		conn:       conn,
		state:      state,
		limiter:    limiter,
		metrics:    m,
		logger:     logger.With().Str("facet", "messages").Logger(),
		resolved:   make(map[string]resolvedChannel),
		subscribed: make(map[int64]string),
		updates:    make(chan entities.Message, updatesQueueSize),
		albums:     make(map[int64]*pendingAlbum),
	}
}

func (f *messageFacet) requireAuthorized() error {
	if !f.state.is(StateAuthorized) {
		return pkgerrors.New(pkgerrors.KindAuthenticationRequired, "client is not authorized")
	}
	return nil
}

// invoke rate limits a call and retries it once after a short FLOOD_WAIT
func (f *messageFacet) invoke(ctx context.Context, op string, call func(ctx context.Context) error) error {
	if err := f.limiter.Wait(ctx); err != nil {
		return pkgerrors.Wrap(pkgerrors.KindTransportFailure, err, op+": rate limit wait cancelled")
	}

	err := call(ctx)
	if wait, ok := tgerr.AsFloodWait(err); ok {
		f.metrics.RecordFloodWait()
		if wait > maxFloodWait {
			return classify(err, op)
		}
		f.logger.Warn().Str("op", op).Dur("wait_duration", wait).Msg("flood wait detected, waiting before retry")
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return classify(ctx.Err(), op)
		}
		err = call(ctx)
	}
	return classify(err, op)
}

func (f *messageFacet) resolve(ctx context.Context, channel string) (resolvedChannel, error) {
	handle := NormalizeChannel(channel)
	if handle == "" {
		return resolvedChannel{}, pkgerrors.New(pkgerrors.KindProtocolRejection, "channel name is empty")
	}

	f.mu.RLock()
	cached, ok := f.resolved[handle]
	f.mu.RUnlock()
	if ok {
		return cached, nil
	}

	var peer *tg.ContactsResolvedPeer
	err := f.invoke(ctx, "resolve "+handle, func(ctx context.Context) error {
		var err error
		peer, err = f.conn.API().ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{
			Username: handle,
		})
		return err
	})
	if err != nil {
		return resolvedChannel{}, err
	}

	for _, chat := range peer.Chats {
		if ch, ok := chat.(*tg.Channel); ok {
			out := resolvedChannel{
				input: &tg.InputChannel{ChannelID: ch.ID, AccessHash: ch.AccessHash},
				title: ch.Title,
			}
			f.mu.Lock()
			f.resolved[handle] = out
			f.mu.Unlock()
			return out, nil
		}
	}
	return resolvedChannel{}, pkgerrors.Newf(pkgerrors.KindProtocolRejection, "%s is not a channel", handle)
}

func (f *messageFacet) ListenToChannels(ctx context.Context, channels []string) ([]ListenResult, error) {
	if err := f.requireAuthorized(); err != nil {
		return nil, err
	}

	results := make([]ListenResult, 0, len(channels))
	for _, name := range channels {
		handle := NormalizeChannel(name)
		result := ListenResult{Channel: handle}

		ch, err := f.resolve(ctx, handle)
		if err == nil {
			err = f.invoke(ctx, "join "+handle, func(ctx context.Context) error {
				_, err := f.conn.API().ChannelsJoinChannel(ctx, ch.input)
				if tgerr.Is(err, "USER_ALREADY_PARTICIPANT") {
					return nil
				}
				return err
			})
		}
		if pkgerrors.IsKind(err, pkgerrors.KindAuthenticationRequired) {
			return nil, err
		}
		if err != nil {
			f.logger.Warn().Err(err).Str("channel", handle).Msg("failed to subscribe to channel")
			result.Error = err.Error()
			results = append(results, result)
			continue
		}

		f.mu.Lock()
		f.subscribed[ch.input.ChannelID] = handle
		f.mu.Unlock()

		result.Title = ch.title
		result.Success = true
		results = append(results, result)
	}
	return results, nil
}

func (f *messageFacet) UnlistenChannels(_ context.Context, channels []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, name := range channels {
		handle := NormalizeChannel(name)
		if ch, ok := f.resolved[handle]; ok {
			delete(f.subscribed, ch.input.ChannelID)
		}
	}
	return nil
}

// FetchMessages returns up to limit recent messages, newest first, with
// album parts collapsed
func (f *messageFacet) FetchMessages(ctx context.Context, channel string, limit int) ([]entities.Message, error) {
	if err := f.requireAuthorized(); err != nil {
		return nil, err
	}
	ch, err := f.resolve(ctx, channel)
	if err != nil {
		return nil, err
	}
	handle := NormalizeChannel(channel)

	var result tg.MessagesMessagesClass
	err = f.invoke(ctx, "history "+handle, func(ctx context.Context) error {
		var err error
		result, err = f.conn.API().MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
			Peer:  &tg.InputPeerChannel{ChannelID: ch.input.ChannelID, AccessHash: ch.input.AccessHash},
			Limit: limit,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	var (
		raw   []tg.MessageClass
		users []tg.UserClass
	)
	switch m := result.(type) {
	case *tg.MessagesChannelMessages:
		raw, users = m.Messages, m.Users
	case *tg.MessagesMessagesSlice:
		raw, users = m.Messages, m.Users
	case *tg.MessagesMessages:
		raw, users = m.Messages, m.Users
	}

	byID := make(map[int64]*tg.User, len(users))
	for _, u := range users {
		if user, ok := u.(*tg.User); ok {
			byID[user.ID] = user
		}
	}

	items := make([]entities.Message, 0, len(raw))
	for _, m := range raw {
		if msg, ok := m.(*tg.Message); ok {
			items = append(items, convertMessage(handle, msg, byID))
		}
	}
	return groupAlbums(items), nil
}

func (f *messageFacet) RepostMessage(ctx context.Context, messageID int, source, destination string) error {
	if err := f.requireAuthorized(); err != nil {
		return err
	}
	from, err := f.resolve(ctx, source)
	if err != nil {
		return err
	}
	to, err := f.resolve(ctx, destination)
	if err != nil {
		return err
	}

	return f.invoke(ctx, "forward", func(ctx context.Context) error {
		_, err := f.conn.API().MessagesForwardMessages(ctx, &tg.MessagesForwardMessagesRequest{
			FromPeer: &tg.InputPeerChannel{ChannelID: from.input.ChannelID, AccessHash: from.input.AccessHash},
			ID:       []int{messageID},
			RandomID: []int64{randomID()},
			ToPeer:   &tg.InputPeerChannel{ChannelID: to.input.ChannelID, AccessHash: to.input.AccessHash},
		})
		return err
	})
}

func (f *messageFacet) SendMessage(ctx context.Context, destination, text string) error {
	if err := f.requireAuthorized(); err != nil {
		return err
	}
	to, err := f.resolve(ctx, destination)
	if err != nil {
		return err
	}

	return f.invoke(ctx, "send", func(ctx context.Context) error {
		_, err := f.conn.API().MessagesSendMessage(ctx, &tg.MessagesSendMessageRequest{
			Peer:     &tg.InputPeerChannel{ChannelID: to.input.ChannelID, AccessHash: to.input.AccessHash},
			Message:  text,
			RandomID: randomID(),
		})
		return err
	})
}

func (f *messageFacet) Updates() <-chan entities.Message {
	return f.updates
}

// handlePush receives messages pushed by the connection
func (f *messageFacet) handlePush(_ context.Context, channel *tg.Channel, msg *tg.Message) {
	f.mu.RLock()
	handle, ok := f.subscribed[channel.ID]
	f.mu.RUnlock()
	if !ok {
		return
	}

	item := convertMessage(handle, msg, nil)
	if item.GroupedID != 0 {
		f.addToAlbumBuffer(item)
		return
	}
	f.emit(item)
}

func (f *messageFacet) addToAlbumBuffer(item entities.Message) {
	f.albumMu.Lock()
	defer f.albumMu.Unlock()

	album, exists := f.albums[item.GroupedID]
	if !exists {
		groupedID := item.GroupedID
		album = &pendingAlbum{}
		album.timer = time.AfterFunc(AlbumBufferTimeout, func() {
			f.flushAlbum(groupedID)
		})
		f.albums[groupedID] = album
	}
	album.items = append(album.items, item)
}

func (f *messageFacet) flushAlbum(groupedID int64) {
	f.albumMu.Lock()
	album, exists := f.albums[groupedID]
	if !exists {
		f.albumMu.Unlock()
		return
	}
	delete(f.albums, groupedID)
	f.albumMu.Unlock()

	f.emit(combineAlbum(album.items))
}

func (f *messageFacet) emit(item entities.Message) {
	f.closedMu.RLock()
	defer f.closedMu.RUnlock()
	if f.closed {
		return
	}

	select {
	case f.updates <- item:
	default:
		f.logger.Warn().Str("channel", item.Channel).Int("message_id", item.ID).Msg("updates queue full, dropping pushed message")
	}
}

// close stops album timers and closes the updates channel
func (f *messageFacet) close() {
	f.albumMu.Lock()
	for id, album := range f.albums {
		album.timer.Stop()
		delete(f.albums, id)
	}
	f.albumMu.Unlock()

	f.closedMu.Lock()
	if !f.closed {
		f.closed = true
		close(f.updates)
	}
	f.closedMu.Unlock()

	f.mu.Lock()
	f.subscribed = make(map[int64]string)
	f.mu.Unlock()
}

func randomID() int64 {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return int64(binary.LittleEndian.Uint64(b[:]))
}
