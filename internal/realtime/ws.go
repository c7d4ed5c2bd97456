package realtime

import (
	"context"
	"net/http"
	"time"

	"pawpal/internal/middleware"
	"pawpal/internal/platform/cache"
	"pawpal/internal/platform/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// El front vive en otro origen (Vercel/Netlify); el token ya autentica.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler abre un Bridge por conexión. Si el socket se cae, no hay reconexión del lado
// del server: el cliente deja de recibir cambios hasta que vuelva a conectar.
func Handler(hub *Hub, c *cache.Cache, routes RoutesFunc, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.CurrentUser(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		// suscripto antes del upgrade: lo publicado mientras el cliente conecta no se pierde
		bridge := NewBridge(hub, c, claims.UserID, routes(claims.UserID), log)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			bridge.Close()
			// Upgrade ya respondió con el error
			logger.FromContext(r.Context(), log).Warn("websocket upgrade failed", logger.Fields{"err": err})
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
		defer cancel()

		go bridge.Run(ctx)

		// reader: solo para detectar cierre y procesar pongs
		go func() {
			defer cancel()
			conn.SetReadLimit(512)
			_ = conn.SetReadDeadline(time.Now().Add(pongWait))
			conn.SetPongHandler(func(string) error {
				return conn.SetReadDeadline(time.Now().Add(pongWait))
			})
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()

		for {
			select {
			case env, ok := <-bridge.Events():
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(env); err != nil {
					return
				}
			case <-ticker.C:
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-ctx.Done():
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(writeWait))
				return
			}
		}
	}
}
