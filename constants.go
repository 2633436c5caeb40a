package main

import "time"

// Round and room timing
const (
	RoomStartDelay = 2 * time.Second // Wait between creating a room and starting the round
	reaperInterval = time.Minute     // How often idle sessions are swept
)

// Session configuration constants
const (
	SessionCookieName = "session_id"
)

// Route constants
const (
	RouteHome          = "/"
	RouteCategory      = "/category"
	RouteGameStart     = "/game/start"
	RouteGameFlip      = "/game/flip"
	RouteGameNext      = "/game/next"
	RouteGameEnd       = "/game/end"
	RoutePlayAgain     = "/game/again"
	RouteRoomCreate    = "/room/create"
	RouteRoomJoin      = "/room/join"
	RouteRoomQR        = "/room/qr.png"
	RouteBack          = "/back"
	RouteQuestions     = "/questions"
	RouteQuestionsMore = "/questions/scroll"
	RouteQuestionsPage = "/questions/page"
	RouteQuestionModal = "/questions/modal"
	RouteHealthz       = "/healthz"
)

// User-facing messages
const (
	AppTitle = "Kartu Bicara"

	MsgMultiplayerSoon   = "Fitur multiplayer masih dalam pengembangan. Segera hadir!"
	MsgCreateSuccess     = "Berhasil"
	MsgCreateSuccessDesc = "Pertanyaan berhasil ditambahkan 🎉"
	MsgCreateFailed      = "Gagal menambahkan pertanyaan"
	MsgCreateFailedDesc  = "Terjadi kesalahan. Coba lagi nanti."
)
