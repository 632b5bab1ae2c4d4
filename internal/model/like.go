package model

// LikeState は閲覧者ごと・ブログごとのいいね状態。
// 照合後はサーバーの値、リクエスト中は楽観的な予測値を表す。
type LikeState struct {
	Liked bool `json:"liked"`
	Count int  `json:"count"`
}

// Toggled はいいね状態を反転させた予測値を返す。
// 件数はLikedと連動して増減し、0未満にはならない。
func (s LikeState) Toggled() LikeState {
	if s.Liked {
		next := LikeState{Liked: false, Count: s.Count - 1}
		if next.Count < 0 {
			next.Count = 0
		}
		return next
	}
	return LikeState{Liked: true, Count: s.Count + 1}
}

// LikeResponse はいいね/いいね解除APIのレスポンス。
type LikeResponse struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"likeCount"`
}

// State はレスポンスをLikeStateに変換する。
func (r LikeResponse) State() LikeState {
	return LikeState{Liked: r.Liked, Count: r.LikeCount}
}
