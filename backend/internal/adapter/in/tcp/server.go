package tcp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxLineSize ограничение длины одной строки агента
const maxLineSize = 64 * 1024

// LineHandler обрабатывает одну строку агента и возвращает ответ
type LineHandler interface {
	HandleLine(ctx context.Context, raw string) (string, error)
}

// Server принимает агентов по TCP: одна строка команды - одна строка наблюдения
type Server struct {
	handler LineHandler
	logger  *zap.Logger

	mu       sync.Mutex
	sessions map[string]net.Conn
	wg       sync.WaitGroup
}

// NewServer создает TCP сервер
func NewServer(handler LineHandler, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		handler:  handler,
		logger:   logger.Named("TCP"),
		sessions: make(map[string]net.Conn),
	}
}

// ListenAndServe слушает addr до отмены ctx
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("не удалось слушать %s: %w", addr, err)
	}
	return s.Serve(ctx, lis)
}

// Serve принимает соединения на lis до отмены ctx.
// После отмены закрывает все сессии и дожидается их завершения.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	go func() {
		<-ctx.Done()
		lis.Close()
		s.closeSessions()
	}()

	s.logger.Info("ожидание агентов", zap.String("addr", lis.Addr().String()))
	for {
		conn, err := lis.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return nil
			}
			return fmt.Errorf("ошибка приема соединения: %w", err)
		}

		id := uuid.NewString()
		s.mu.Lock()
		s.sessions[id] = conn
		s.mu.Unlock()
		if ctx.Err() != nil {
			conn.Close()
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, id, conn)
		}()
	}
}

// Sessions количество активных сессий
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) handleConn(ctx context.Context, id string, conn net.Conn) {
	logger := s.logger.With(zap.String("session", id), zap.String("remote", conn.RemoteAddr().String()))
	logger.Info("агент подключен")

	defer func() {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		conn.Close()
		logger.Info("агент отключен")
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)
	writer := bufio.NewWriter(conn)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		reply, err := s.handler.HandleLine(ctx, line)
		if err != nil {
			// агент ждет ответ на каждую строку, поэтому отвечаем пустым наблюдением
			logger.Error("ошибка обработки команды", zap.String("raw", line), zap.Error(err))
			reply = ""
		}

		if _, err := writer.WriteString(reply + "\n"); err != nil {
			logger.Warn("ошибка записи ответа", zap.Error(err))
			return
		}
		if err := writer.Flush(); err != nil {
			logger.Warn("ошибка записи ответа", zap.Error(err))
			return
		}
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		logger.Warn("ошибка чтения", zap.Error(err))
	}
}

func (s *Server) closeSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conn := range s.sessions {
		conn.Close()
	}
}
