package port

// StateNotifier рассылает состояние стримера подключенным клиентам (Port)
// Реализация в Infrastructure слое (WebSocket Hub)
type StateNotifier interface {
	// BroadcastState отправляет состояние всем клиентам
	BroadcastState(state map[string]interface{})

	// ClientCount возвращает количество подключенных клиентов
	ClientCount() int
}
